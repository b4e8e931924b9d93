package testservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/qualitykit/api-contract-tests/apiclient"
	"github.com/qualitykit/api-contract-tests/servicedef"
)

// consumerEntity is one live API consumer created at the harness's request.
// Commands run synchronously; retry and pagination progress is reported
// asynchronously to the harness's callback endpoint, each message tagged with
// a sequential counter so the harness can restore ordering.
type consumerEntity struct {
	client          *apiclient.Client
	callbackURL     string
	callbackClient  *http.Client
	callbackCounter int32
	logger          Logger
}

func newConsumerEntity(params servicedef.CreateConsumerParams, logger Logger) (*consumerEntity, error) {
	if params.BaseURL == "" {
		return nil, fmt.Errorf("baseUrl is required")
	}
	e := &consumerEntity{
		callbackURL:    params.CallbackURL,
		callbackClient: &http.Client{Timeout: time.Second * 5},
		logger:         logger,
	}

	config := apiclient.Config{
		BaseURL:           params.BaseURL,
		Headers:           params.Headers,
		AuthToken:         params.AuthToken,
		RetryServerErrors: params.RetryServerErrors,
		Logger:            logger,
		RetryListener: func(attempt, statusCode int, delay time.Duration) {
			e.sendCallback(servicedef.CallbackMessage{
				Kind: servicedef.CallbackKindRetry,
				Retry: &servicedef.RetryCallback{
					Attempt:    attempt,
					StatusCode: statusCode,
					DelayMS:    delay.Milliseconds(),
				},
			})
		},
	}
	if timeoutMS, ok := params.TimeoutMS.Get(); ok {
		config.Timeout = time.Duration(timeoutMS) * time.Millisecond
	}
	if maxRetries, ok := params.MaxRetries.Get(); ok {
		config.MaxRetries = maxRetries
	}

	client, err := apiclient.New(config)
	if err != nil {
		return nil, err
	}
	e.client = client
	return e, nil
}

func (e *consumerEntity) sendCallback(message servicedef.CallbackMessage) {
	if e.callbackURL == "" {
		return
	}
	counter := atomic.AddInt32(&e.callbackCounter, 1)
	data, _ := json.Marshal(message)
	url := e.callbackURL + "/" + strconv.Itoa(int(counter))
	resp, err := e.callbackClient.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		e.logger.Printf("callback post failed: %s", err)
		return
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func (e *consumerEntity) doCommand(ctx context.Context, params servicedef.CommandParams) (servicedef.CommandResult, error) {
	switch params.Command {
	case servicedef.CommandRegisterUser:
		if params.RegisterUser == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		user, err := e.client.RegisterUser(ctx, apiclient.RegisterUserRequest{
			Email:     params.RegisterUser.Email,
			Password:  params.RegisterUser.Password,
			Name:      params.RegisterUser.Name,
			PromoCode: params.RegisterUser.PromoCode,
		})
		if err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{User: userRep(user)}, nil

	case servicedef.CommandLogin:
		if params.Login == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		result, err := e.client.Login(ctx, params.Login.Email, params.Login.Password)
		if err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{Token: result.Token, User: userRep(&result.User)}, nil

	case servicedef.CommandGetUser:
		if params.GetUser == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		user, err := e.client.GetUser(ctx, params.GetUser.UserID)
		if err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{User: userRep(user)}, nil

	case servicedef.CommandUpdateUser:
		if params.UpdateUser == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		user, err := e.client.UpdateUser(ctx, params.UpdateUser.UserID, apiclient.UpdateUserRequest{
			Name:  params.UpdateUser.Name,
			Email: params.UpdateUser.Email,
		})
		if err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{User: userRep(user)}, nil

	case servicedef.CommandDeleteUser:
		if params.DeleteUser == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		if err := e.client.DeleteUser(ctx, params.DeleteUser.UserID); err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{Deleted: true}, nil

	case servicedef.CommandListProducts:
		opts := apiclient.ListProductsOptions{
			PageListener: func(page, itemCount int) {
				e.sendCallback(servicedef.CallbackMessage{
					Kind: servicedef.CallbackKindPage,
					Page: &servicedef.PageCallback{Page: page, ItemCount: itemCount},
				})
			},
		}
		if params.ListProducts != nil {
			opts.PageSize = params.ListProducts.PageSize.OrElse(0)
			opts.MaxPages = params.ListProducts.MaxPages.OrElse(0)
		}
		list, err := e.client.ListProducts(ctx, opts)
		if err != nil {
			return errorResult(err), nil
		}
		products := servicedef.ProductsRep{
			Items:      make([]servicedef.ProductRep, 0, len(list.Items)),
			PagesRead:  list.PagesRead,
			TotalItems: list.TotalItems,
		}
		for _, p := range list.Items {
			products.Items = append(products.Items, servicedef.ProductRep{ID: p.ID, Name: p.Name, Price: p.Price})
		}
		return servicedef.CommandResult{Products: &products}, nil

	case servicedef.CommandUploadFile:
		if params.UploadFile == nil {
			return servicedef.CommandResult{}, missingParams(params.Command)
		}
		data, err := base64.StdEncoding.DecodeString(params.UploadFile.DataBase64)
		if err != nil {
			return servicedef.CommandResult{}, fmt.Errorf("dataBase64 is not valid base64: %w", err)
		}
		result, err := e.client.UploadFile(ctx, apiclient.UploadRequest{
			FileName:    params.UploadFile.FileName,
			ContentType: params.UploadFile.ContentType,
			Data:        data,
		})
		if err != nil {
			return errorResult(err), nil
		}
		return servicedef.CommandResult{Upload: &servicedef.UploadResultRep{FileID: result.FileID, Size: result.Size}}, nil

	default:
		return servicedef.CommandResult{}, fmt.Errorf("unrecognized command %q", params.Command)
	}
}

func missingParams(command string) error {
	return fmt.Errorf("command %q requires its parameter object", command)
}

func userRep(user *apiclient.User) *servicedef.UserRep {
	return &servicedef.UserRep{ID: user.ID, Email: user.Email, Name: user.Name}
}

// errorResult converts a consumer-side failure into the wire representation.
// API errors keep their status, code, and details; anything else (transport
// failure, malformed response) is reported with only a message.
func errorResult(err error) servicedef.CommandResult {
	rep := servicedef.ErrorRep{Message: err.Error()}
	if apiErr, ok := err.(*apiclient.APIError); ok {
		rep.StatusCode = apiErr.StatusCode
		rep.Code = apiErr.Code
		rep.Message = apiErr.Message
		for _, d := range apiErr.Details {
			rep.Details = append(rep.Details, servicedef.ErrorDetailRep{Field: d.Field, Message: d.Message})
		}
	}
	return servicedef.CommandResult{Error: &rep}
}
