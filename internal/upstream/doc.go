// Package upstream is the HTTP client for the product service the gateway
// forwards to.
//
// Every operation issues exactly one outbound request relative to a fixed
// base URL and returns without buffering more than it must: List yields
// products as they are decoded and UploadImage streams its multipart body.
//
// Results are classified as follows:
//   - success: a decoded *product.Product, a ProductStream or true;
//   - absence: an error matching ErrNotFound (Get, Update, UploadImage);
//   - rejection: a *StatusError with the raw upstream body;
//   - failure: a *TransportError or *DecodeError, or ErrCircuitOpen.
//
// The Policy decides which statuses read operations decode. PolicyStrict
// decodes only the documented success status; PolicyLenient decodes any
// response that carries a body.
package upstream
