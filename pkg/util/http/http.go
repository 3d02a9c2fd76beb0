package http

import (
	"net/http"

	"github.com/pkg/errors"
)

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func EnsureSuccessStatusCode(resp *http.Response) error {
	if !isSuccessStatusCode(resp) {
		url := ""
		if resp.Request != nil && resp.Request.URL != nil {
			url = resp.Request.URL.String()
		}
		return errors.Errorf("http response from %q did not indicate success status code: %s", url, resp.Status)
	}
	return nil
}
