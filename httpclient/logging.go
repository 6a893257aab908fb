package httpclient

import (
	nethttp "net/http"
)

const (
	logMsgRequest  = "REST client request"
	logMsgResponse = "REST client response"
)

// logRequest emits a debug summary of an outbound attempt and, with LogPayloads,
// a second event carrying headers and a body preview.
func (c *RESTClient) logRequest(req *nethttp.Request, body []byte) {
	requestID := req.Header.Get(c.traceHeader)

	event := c.log.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID)
	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg(logMsgRequest)

	if !c.cfg.LogPayloads {
		return
	}
	preview, truncated := c.preview(body)
	c.log.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", requestID).
		Interface("headers", req.Header).
		Int("body_size", len(body)).
		Bool("body_truncated", truncated).
		Str("body_preview", string(preview)).
		Msg(logMsgRequest)
}

func (c *RESTClient) logResponse(req *nethttp.Request, resp *nethttp.Response, body []byte) {
	requestID := req.Header.Get(c.traceHeader)

	c.log.Debug().
		Str("direction", "inbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Int("body_size", len(body)).
		Msg(logMsgResponse)

	if !c.cfg.LogPayloads {
		return
	}
	preview, truncated := c.preview(body)
	c.log.Debug().
		Str("direction", "inbound").
		Str("request_id", requestID).
		Interface("headers", resp.Header).
		Bool("body_truncated", truncated).
		Str("body_preview", string(preview)).
		Msg(logMsgResponse)
}

func (c *RESTClient) preview(body []byte) ([]byte, bool) {
	if len(body) > c.cfg.MaxPayloadLogBytes {
		return body[:c.cfg.MaxPayloadLogBytes], true
	}
	return body, false
}
