package apitests

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/qualitykit/api-contract-tests/framework"
	"github.com/qualitykit/api-contract-tests/servicedef"
)

// callbackReceiver accepts the asynchronous progress messages (retry and page
// events) that the consumer entity posts back to us. Each message arrives on
// a separate HTTP request at the subpath /{counter}, so a MessageSortingQueue
// restores the order the consumer emitted them in.
type callbackReceiver struct {
	endpoint       *framework.MockEndpoint
	output         chan callbackOutput
	sortedMessages *framework.MessageSortingQueue
	logger         framework.Logger
}

type callbackOutput struct {
	message servicedef.CallbackMessage
	err     error
}

func newCallbackReceiver(harness *framework.TestHarness, logger framework.Logger) *callbackReceiver {
	c := &callbackReceiver{
		output:         make(chan callbackOutput, 100),
		sortedMessages: framework.NewMessageSortingQueue(100),
		logger:         logger,
	}
	c.endpoint = harness.NewMockEndpoint(c, 0, framework.LoggerWithPrefix(logger, "[callbacks] "))
	go c.consumeMessages()
	return c
}

func (c *callbackReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		c.sendError(errors.New("got callback request with no body"))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		c.sendError(fmt.Errorf("error reading callback request body: %w", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if len(r.URL.Path) > 1 {
		counter, err := strconv.Atoi(r.URL.Path[1:])
		if err == nil {
			c.sortedMessages.Accept(counter, data)
			w.WriteHeader(http.StatusAccepted)
			return
		}
	}
	c.sendError(fmt.Errorf("callback request did not have a valid counter path: %q", r.URL.Path))
	w.WriteHeader(http.StatusBadRequest)
}

func (c *callbackReceiver) consumeMessages() {
	for data := range c.sortedMessages.C {
		c.logger.Printf("received: %s", string(data))
		var message servicedef.CallbackMessage
		if err := json.Unmarshal(data, &message); err != nil {
			c.sendError(fmt.Errorf("malformed callback message %q: %w", string(data), err))
			continue
		}
		c.output <- callbackOutput{message: message}
	}
}

func (c *callbackReceiver) sendError(err error) {
	c.logger.Printf("error: %s", err)
	c.output <- callbackOutput{err: err}
}

// AwaitMessage waits for the next ordered callback message.
func (c *callbackReceiver) AwaitMessage(timeout time.Duration) (servicedef.CallbackMessage, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case item, ok := <-c.output:
		if !ok {
			return servicedef.CallbackMessage{}, errors.New("callback receiver was closed")
		}
		return item.message, item.err
	case <-deadline.C:
		var deferredDesc string
		if deferred := c.sortedMessages.Deferred(); len(deferred) > 0 {
			deferredDesc = fmt.Sprintf(" (%d out-of-order messages still deferred)", len(deferred))
		}
		return servicedef.CallbackMessage{}, fmt.Errorf("timed out waiting for a callback message%s", deferredDesc)
	}
}

// ExpectNoMessage asserts silence on the callback channel for the duration.
func (c *callbackReceiver) ExpectNoMessage(duration time.Duration) error {
	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	select {
	case item := <-c.output:
		if item.err != nil {
			return item.err
		}
		data, _ := json.Marshal(item.message)
		return fmt.Errorf("expected no callback messages but received: %s", string(data))
	case <-deadline.C:
		return nil
	}
}

func (c *callbackReceiver) Close() {
	c.endpoint.Close()
	c.sortedMessages.Close()
}
