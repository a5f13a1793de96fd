package portal

import (
	"context"
	"net/http"
	"net/url"
	"sync"
)

type stubResponse struct {
	status int
	body   []byte
	err    error
}

// ClientStub replays canned responses per URL and records form posts, for
// fetcher tests without a real portal.
type ClientStub struct {
	mu           sync.Mutex
	getResponses map[string]stubResponse
	postResponse stubResponse
	getCalls     []string
	postedForms  []url.Values
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		getResponses: make(map[string]stubResponse),
		postResponse: stubResponse{status: http.StatusOK, body: []byte("ok")},
	}
}

func (c *ClientStub) Get(ctx context.Context, target string) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls = append(c.getCalls, target)

	resp, ok := c.getResponses[target]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	if resp.err != nil {
		return 0, nil, resp.err
	}
	return resp.status, resp.body, nil
}

func (c *ClientStub) PostForm(ctx context.Context, target string, form url.Values) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postedForms = append(c.postedForms, form)

	if c.postResponse.err != nil {
		return 0, nil, c.postResponse.err
	}
	return c.postResponse.status, c.postResponse.body, nil
}

// Helper methods for test setup

func (c *ClientStub) SetGetResponse(target string, status int, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getResponses[target] = stubResponse{status: status, body: body}
}

func (c *ClientStub) SetGetError(target string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getResponses[target] = stubResponse{err: err}
}

func (c *ClientStub) SetPostResponse(status int, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postResponse = stubResponse{status: status, body: body}
}

func (c *ClientStub) SetPostError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postResponse = stubResponse{err: err}
}

func (c *ClientStub) GetCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]string, len(c.getCalls))
	copy(calls, c.getCalls)
	return calls
}

func (c *ClientStub) PostedForms() []url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	forms := make([]url.Values, len(c.postedForms))
	copy(forms, c.postedForms)
	return forms
}
