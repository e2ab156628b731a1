package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const maxBodySize = 1 << 20

// requestParams extracts request values through an ordered chain of
// strategies, first non-empty wins: multipart file part, then form field,
// then query parameter, then JSON body field. The order is part of the
// request-parsing contract; every handler field goes through the same
// chain.
type requestParams struct {
	r        *http.Request
	jsonBody map[string]any
}

func newRequestParams(r *http.Request) *requestParams {
	p := &requestParams{r: r}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"):
		r.ParseMultipartForm(maxBodySize)
	case strings.HasPrefix(ct, "application/json"):
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err == nil && len(body) > 0 {
			json.Unmarshal(body, &p.jsonBody)
		}
	default:
		r.ParseForm()
	}

	return p
}

// String resolves a string-valued parameter through the strategy chain.
func (p *requestParams) String(name string) string {
	if p.r.MultipartForm != nil {
		if vals := p.r.MultipartForm.Value[name]; len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	if v := p.r.PostFormValue(name); v != "" {
		return v
	}
	if v := p.r.URL.Query().Get(name); v != "" {
		return v
	}
	if p.jsonBody != nil {
		if v, ok := p.jsonBody[name].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Bytes resolves a parameter that may arrive as an uploaded file, falling
// back to the string chain.
func (p *requestParams) Bytes(name string) []byte {
	if p.r.MultipartForm != nil {
		if files := p.r.MultipartForm.File[name]; len(files) > 0 {
			if data := readFilePart(files[0]); len(data) > 0 {
				return data
			}
		}
	}
	if v := p.String(name); v != "" {
		return []byte(v)
	}
	return nil
}

func readFilePart(fh *multipart.FileHeader) []byte {
	f, err := fh.Open()
	if err != nil {
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBodySize))
	if err != nil {
		return nil
	}
	return data
}
