package collyfetcher

import (
	"mime"

	"golang.org/x/net/html/charset"
)

// toUTF8 transcodes HTML whose encoding is declared only inside the document
// (BOM or <meta charset>). Colly already converts bodies whose Content-Type
// header names a charset, so those are returned untouched. Undeclared
// non-UTF-8 bodies fall back to windows-1252, as browsers do.
func toUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 || headerCharset(contentType) != "" {
		return body
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if enc == nil || name == "utf-8" {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

func headerCharset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
