package discord

import "net/http"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *Client {
	h := &HTTPClient{
		inner:   &http.Client{Transport: fn},
		baseURL: "https://discord.example/api/v10",
		headers: map[string]string{"Authorization": "Bot test-token"},
	}
	return newClient(h, "app-1")
}
