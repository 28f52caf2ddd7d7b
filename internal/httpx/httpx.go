// Package httpx holds the response envelope and request helpers shared by
// the HTTP handlers.
package httpx

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/ayush/useradmin/internal/apperr"
)

// MaxBodyBytes caps request bodies read by FormValues.
const MaxBodyBytes = 1 << 20

// MsgInvalidBody is returned when a request body cannot be decoded.
const MsgInvalidBody = "invalid request body"

// Response is the action envelope. Success responses carry Data and/or
// Message; failures carry Errors keyed by field or "general".
type Response struct {
	Success bool               `json:"success"`
	Data    any                `json:"data,omitempty"`
	Message string             `json:"message,omitempty"`
	Errors  apperr.FieldErrors `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

// WriteSuccess writes a 200 success envelope.
func WriteSuccess(w http.ResponseWriter, data any, message string) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Data: data, Message: message})
}

// WriteError writes the failure envelope for err. Errors outside the
// taxonomy become a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperr.HTTPStatus(err), Response{Success: false, Errors: apperr.Fields(err)})
}

// Redirect sends a 303 See Other to path.
func Redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// FormValues reads a urlencoded/multipart form or a flat JSON object of
// strings into url.Values.
func FormValues(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to form parsing

	if mediaType == "application/json" {
		var body map[string]string
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			return nil, apperr.Validation(apperr.FieldErrors{apperr.GeneralField: MsgInvalidBody})
		}
		values := make(url.Values, len(body))
		for k, v := range body {
			values.Set(k, v)
		}
		return values, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxBodyBytes); err != nil {
			return nil, apperr.Validation(apperr.FieldErrors{apperr.GeneralField: MsgInvalidBody})
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, apperr.Validation(apperr.FieldErrors{apperr.GeneralField: MsgInvalidBody})
	}
	return r.PostForm, nil
}

// Optional returns a pointer to the submitted value of key, or nil when
// the key was not submitted at all.
func Optional(values url.Values, key string) *string {
	if _, ok := values[key]; !ok {
		return nil
	}
	v := values.Get(key)
	return &v
}
