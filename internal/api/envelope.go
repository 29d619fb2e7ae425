package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrail/pagetrail-server/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the standard
// envelope. Errors become {v, success:false, error, code, message, details};
// everything else becomes {v, success:true, data}.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return response.Failure(body.Code, body.Message, body.Details), nil
	case *huma.ErrorModel:
		code := statusToCode(body.Status)
		var details any
		if len(body.Errors) > 0 {
			details = body.Errors
		}
		return response.Failure(code, body.Detail, details), nil
	case response.Envelope, *response.Envelope:
		return v, nil
	default:
		return response.Ok(v), nil
	}
}
