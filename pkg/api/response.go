package api

import "strings"

// field walks nested JSON objects and returns the value at keys.
func field(doc any, keys ...string) (any, bool) {
	cur := doc
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func stringField(doc any, keys ...string) (string, bool) {
	v, ok := field(doc, keys...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// TokenFrom finds the bearer token in a decoded login response. It checks
// data.accessToken, data.token, accessToken and token, in that order.
func TokenFrom(doc any) (string, bool) {
	for _, path := range [][]string{
		{"data", "accessToken"},
		{"data", "token"},
		{"accessToken"},
		{"token"},
	} {
		if s, ok := stringField(doc, path...); ok {
			return s, true
		}
	}
	return "", false
}

// urlRules are tried in order; the first one yielding a non-empty string wins.
var urlRules = []func(doc any) (string, bool){
	func(doc any) (string, bool) { return stringField(doc, "url") },
	func(doc any) (string, bool) { return stringField(doc, "data", "url") },
	func(doc any) (string, bool) { return stringField(doc, "data", "link") },
	func(doc any) (string, bool) {
		files, ok := field(doc, "data", "files")
		if !ok {
			return "", false
		}
		list, ok := files.([]any)
		if !ok || len(list) == 0 {
			return "", false
		}
		return stringField(list[0], "url")
	},
	func(doc any) (string, bool) { return stringField(doc, "secure_url") },
	func(doc any) (string, bool) {
		s, ok := stringField(doc, "data")
		return s, ok && strings.HasPrefix(s, "http")
	},
}

// URLFrom finds the uploaded file URL in a decoded upload response.
func URLFrom(doc any) (string, bool) {
	for _, rule := range urlRules {
		if s, ok := rule(doc); ok {
			return s, true
		}
	}
	return "", false
}
