package otelgee

import (
	"go.opentelemetry.io/otel/attribute"

	"geetrace.local/gee"
)

// Attribute keys the current semconv release no longer defines. They are kept
// for compatibility with dashboards built on the older HTTP conventions.
const (
	attrHTTPMethod        = attribute.Key("http.method")
	attrHTTPURL           = attribute.Key("http.url")
	attrHTTPTarget        = attribute.Key("http.target")
	attrHTTPHost          = attribute.Key("http.host")
	attrHTTPFlavor        = attribute.Key("http.flavor")
	attrHTTPContentLength = attribute.Key("http.request_content_length")
	attrHTTPUserAgent     = attribute.Key("http.user_agent")
	attrHTTPStatusText    = attribute.Key("http.status_text")

	attrErrorMessage  = attribute.Key("error.message")
	attrErrorStack    = attribute.Key("error.stack")
	attrAPIName       = attribute.Key("api.name")
	attrCorrelationID = attribute.Key("correlation.id")
)

const (
	defaultErrorMessage = "Unknown error"
	undefinedAPIName    = "undefined"
	anonymous           = "<anonymous>"
	errorEvent          = "error"
)

func requestURL(c *gee.Context) string {
	scheme := "http"
	if c.Req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Req.Host + c.Req.URL.RequestURI()
}

// httpAttributes is the snapshot every child span starts with.
func httpAttributes(c *gee.Context) []attribute.KeyValue {
	return []attribute.KeyValue{
		attrHTTPMethod.String(c.Method),
		attrHTTPURL.String(requestURL(c)),
		attrHTTPTarget.String(c.Path),
	}
}
