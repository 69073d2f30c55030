package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// Decoder turns a gateway Response into a decoded value or an APIError. Every
// error it produces is also handed to the Reporter.
type Decoder struct {
	reporter Reporter
}

func NewDecoder(reporter Reporter) *Decoder {
	if reporter == nil {
		reporter = Discard
	}

	return &Decoder{reporter: reporter}
}

type errorBody struct {
	ErrorDescription string `json:"error_description"`
}

// Decode parses resp into target. The intention names the operation in error
// messages. An empty body leaves target untouched and is not an error.
func (d *Decoder) Decode(ctx context.Context, resp Response, intention string, target any) *APIError {
	apiErr := decode(resp, intention, target)
	if apiErr != nil {
		d.reporter.Report(ctx, apiErr)
	}

	return apiErr
}

// DecodePayload decodes resp like Decode and additionally fails any answer
// outside the 2xx range, whatever its body. The body of such an answer is
// never returned as a payload and is not inspected for an error description.
func (d *Decoder) DecodePayload(ctx context.Context, resp Response, intention string, target any) *APIError {
	if apiErr := d.Decode(ctx, resp, intention, target); apiErr != nil {
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := NewError(KindUpstream, intention, statusText(resp.StatusCode))
		d.reporter.Report(ctx, apiErr)
		return apiErr
	}

	return nil
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP status %d", status)
}

func decode(resp Response, intention string, target any) *APIError {
	if resp.Err != nil {
		return &APIError{
			Kind:      KindTransport,
			Intention: intention,
			Message:   resp.Err.Error(),
			Err:       resp.Err,
		}
	}

	body := bytes.TrimSpace(resp.Body)

	if len(body) > 0 && resp.StatusCode >= 400 && resp.StatusCode <= 499 {
		return NewError(KindUpstream, intention, describe(resp.StatusCode, body))
	}

	if len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &APIError{
			Kind:      KindDecode,
			Intention: intention,
			Message:   err.Error(),
			Err:       err,
		}
	}

	return nil
}

// describe extracts the upstream error description, falling back to the
// status text when the body carries none.
func describe(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.ErrorDescription != "" {
		return eb.ErrorDescription
	}

	return http.StatusText(status)
}
