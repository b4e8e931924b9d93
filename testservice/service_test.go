package testservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

func newServiceServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(NewService("test", nil, nil).Handler())
	t.Cleanup(server.Close)
	return server
}

func createConsumer(t *testing.T, server *httptest.Server, params servicedef.CreateConsumerParams) string {
	data, err := json.Marshal(params)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+"/", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.NotEmpty(t, location)
	return server.URL + location
}

func sendCommand(t *testing.T, resourceURL string, params servicedef.CommandParams) servicedef.CommandResult {
	data, err := json.Marshal(params)
	require.NoError(t, err)
	resp, err := http.Post(resourceURL, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result servicedef.CommandResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestStatusResourceAdvertisesCapabilities(t *testing.T) {
	server := newServiceServer(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status servicedef.StatusRep
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Contains(t, status.Capabilities, servicedef.CapabilityAuth)
	assert.Contains(t, status.Capabilities, servicedef.CapabilityPagination)
	assert.Contains(t, status.Capabilities, servicedef.CapabilityRateLimit)
}

func TestCreateConsumerRequiresBaseURL(t *testing.T) {
	server := newServiceServer(t)

	resp, err := http.Post(server.URL+"/", "application/json", bytes.NewReader([]byte(`{"tag":"x"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConsumerEntityLifecycle(t *testing.T) {
	// A fake API so the consumer has something to call
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"u1","email":"a@example.com"}`)
	}))
	defer api.Close()

	server := newServiceServer(t)
	resourceURL := createConsumer(t, server, servicedef.CreateConsumerParams{Tag: "lifecycle", BaseURL: api.URL})

	result := sendCommand(t, resourceURL, servicedef.CommandParams{
		Command: servicedef.CommandGetUser,
		GetUser: &servicedef.GetUserParams{UserID: "u1"},
	})
	require.NotNil(t, result.User)
	assert.Equal(t, "u1", result.User.ID)

	req, _ := http.NewRequest("DELETE", resourceURL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Commands to a disposed consumer should 404
	resp, err = http.Post(resourceURL, "application/json", bytes.NewReader([]byte(`{"command":"getUser","getUser":{"userId":"u1"}}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIErrorsAreReturnedInResultNotAsCommandFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"user_not_found","message":"no such user"}}`)
	}))
	defer api.Close()

	server := newServiceServer(t)
	resourceURL := createConsumer(t, server, servicedef.CreateConsumerParams{Tag: "errors", BaseURL: api.URL})

	result := sendCommand(t, resourceURL, servicedef.CommandParams{
		Command: servicedef.CommandGetUser,
		GetUser: &servicedef.GetUserParams{UserID: "missing"},
	})
	require.NotNil(t, result.Error)
	assert.Equal(t, http.StatusNotFound, result.Error.StatusCode)
	assert.Equal(t, "user_not_found", result.Error.Code)
}

func TestUnknownCommandIsRejected(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer api.Close()

	server := newServiceServer(t)
	resourceURL := createConsumer(t, server, servicedef.CreateConsumerParams{Tag: "bad", BaseURL: api.URL})

	resp, err := http.Post(resourceURL, "application/json", bytes.NewReader([]byte(`{"command":"doTheThing"}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPageCallbacksArePostedInCounterOrder(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page := r.URL.Query().Get("page")
		if page == "2" {
			fmt.Fprint(w, `{"items":[{"id":"p2","name":"two","price":2}],"pagination":{"page":2,"pageSize":1,"totalItems":2,"totalPages":2,"nextPage":null}}`)
		} else {
			fmt.Fprint(w, `{"items":[{"id":"p1","name":"one","price":1}],"pagination":{"page":1,"pageSize":1,"totalItems":2,"totalPages":2,"nextPage":2}}`)
		}
	}))
	defer api.Close()

	type received struct {
		counter string
		message servicedef.CallbackMessage
	}
	callbackCh := make(chan received, 10)
	callbacks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg servicedef.CallbackMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		callbackCh <- received{counter: r.URL.Path, message: msg}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer callbacks.Close()

	server := newServiceServer(t)
	resourceURL := createConsumer(t, server, servicedef.CreateConsumerParams{
		Tag: "pages", BaseURL: api.URL, CallbackURL: callbacks.URL,
	})

	result := sendCommand(t, resourceURL, servicedef.CommandParams{
		Command:      servicedef.CommandListProducts,
		ListProducts: &servicedef.ListProductsParams{},
	})
	require.Nil(t, result.Error)
	require.NotNil(t, result.Products)
	assert.Equal(t, 2, result.Products.PagesRead)

	first := <-callbackCh
	assert.Equal(t, "/1", first.counter)
	require.NotNil(t, first.message.Page)
	assert.Equal(t, 1, first.message.Page.Page)

	second := <-callbackCh
	assert.Equal(t, "/2", second.counter)
	require.NotNil(t, second.message.Page)
	assert.Equal(t, 2, second.message.Page.Page)
}
