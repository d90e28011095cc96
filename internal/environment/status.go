package environment

import "strconv"

// statusCodes is the whitelist of literal status codes a route response may use.
// Range codes such as "4XX" and the OpenAPI "default" response are not part of it.
var statusCodes = func() map[string]struct{} {
	codes := []int{
		100, 101, 102, 103,
		200, 201, 202, 203, 204, 205, 206, 207, 208, 226,
		300, 301, 302, 303, 304, 305, 306, 307, 308,
		400, 401, 402, 403, 404, 405, 406, 407, 408, 409,
		410, 411, 412, 413, 414, 415, 416, 417, 418,
		421, 422, 423, 424, 425, 426, 428, 429, 431, 451,
		500, 501, 502, 503, 504, 505, 506, 507, 508, 510, 511,
	}
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[strconv.Itoa(c)] = struct{}{}
	}
	return m
}()

// IsSupportedStatus reports whether code is one of the whitelisted literal codes.
func IsSupportedStatus(code string) bool {
	_, ok := statusCodes[code]
	return ok
}
