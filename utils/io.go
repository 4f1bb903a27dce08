package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

func GetRequestReturnStuff[T any](url string) (T, error) {
	var objects T

	client := &http.Client{}
	request, _ := http.NewRequest("GET", url, nil)

	response, responseErr := client.Do(request)
	if responseErr != nil {
		return objects, responseErr
	}
	defer response.Body.Close()

	if response.StatusCode != 200 {
		return objects, fmt.Errorf("request to %s failed with status %d", url, response.StatusCode)
	}

	if jsonErr := json.NewDecoder(response.Body).Decode(&objects); jsonErr != nil {
		return objects, jsonErr
	}

	return objects, nil
}

// CountingReader wraps a reader and keeps a running byte total,
// safe to read from another goroutine while a transfer is underway.
type CountingReader struct {
	Reader io.Reader
	count  int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	atomic.AddInt64(&c.count, int64(n))
	return n, err
}

func (c *CountingReader) Count() int64 {
	return atomic.LoadInt64(&c.count)
}
