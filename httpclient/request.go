package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"regexp"
	"strings"
)

var absoluteURLPattern = regexp.MustCompile(`(?i)^https?://`)

// resolveURL passes absolute URLs through and joins everything else with the base URL.
func (c *RESTClient) resolveURL(raw string) (string, error) {
	target := raw
	if !absoluteURLPattern.MatchString(raw) {
		if c.baseURL == "" {
			return "", NewValidationError(fmt.Sprintf("relative url %q without a base url", raw), "url")
		}
		target = c.baseURL + "/" + strings.TrimLeft(raw, "/")
	}
	if _, err := url.Parse(target); err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid url %q: %v", raw, err), "url")
	}
	return target, nil
}

// encodedBody is a request body rendered once and replayed for every attempt.
type encodedBody struct {
	data        []byte
	contentType string
	keyPart     string
	present     bool
	form        bool
}

func (b *encodedBody) reader() io.Reader {
	if !b.present {
		return nethttp.NoBody
	}
	return bytes.NewReader(b.data)
}

func encodeBody(body any) (*encodedBody, error) {
	switch v := body.(type) {
	case nil:
		return &encodedBody{}, nil
	case string:
		return &encodedBody{data: []byte(v), keyPart: v, present: true}, nil
	case []byte:
		return &encodedBody{data: v, keyPart: string(v), present: true}, nil
	case json.RawMessage:
		return &encodedBody{data: v, keyPart: string(v), present: true}, nil
	case *FormData:
		if v == nil {
			return &encodedBody{}, nil
		}
		data, contentType, err := v.encode()
		if err != nil {
			return nil, NewValidationError("encode form data: "+err.Error(), "body")
		}
		return &encodedBody{data: data, contentType: contentType, keyPart: v.keyPart(), present: true, form: true}, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, NewValidationError("encode JSON body: "+err.Error(), "body")
		}
		return &encodedBody{data: data, keyPart: string(data), present: true}, nil
	}
}

// requestKey identifies a call for both the response cache and in-flight de-duplication.
func requestKey(method, resolvedURL string, body *encodedBody) string {
	return method + ":" + resolvedURL + ":" + body.keyPart
}

// buildHeaders merges default, request and option headers, adds the bearer token and
// applies the body-dependent rules.
func (c *RESTClient) buildHeaders(ctx context.Context, method string, body *encodedBody, reqHeaders, optHeaders map[string]string, token string) nethttp.Header {
	h := make(nethttp.Header)
	for k, v := range c.defaultHeaders {
		h.Set(k, v)
	}
	for k, v := range reqHeaders {
		h.Set(k, v)
	}
	for k, v := range optHeaders {
		h.Set(k, v)
	}
	if token != "" {
		h.Set(headerAuthorization, "Bearer "+token)
	}

	switch {
	case body.form:
		h.Set(headerContentType, body.contentType)
	case !body.present && (method == nethttp.MethodGet || method == nethttp.MethodHead || method == nethttp.MethodDelete):
		h.Del(headerContentType)
	}
	if !body.present {
		h.Del(HeaderRequestedWith)
	}

	if h.Get(c.traceHeader) == "" {
		h.Set(c.traceHeader, c.traceID(ctx))
	}
	return h
}

func (c *RESTClient) traceID(ctx context.Context) string {
	if id, ok := TraceIDFromContext(ctx); ok {
		return id
	}
	return c.newTraceID()
}
