// Package servicedef defines the JSON protocol between the test harness and a
// test service. A test service wraps an implementation of an API consumer
// (client SDK) for the application under test, and exposes it so that the
// harness can create consumer instances, issue commands to them, and receive
// asynchronous progress callbacks.
package servicedef

import "gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

// Capability names that a test service may advertise in its status resource.
// Tests that rely on an optional capability are skipped if the service does
// not declare it.
const (
	CapabilityAuth          = "auth"
	CapabilityRegistration  = "registration"
	CapabilityPagination    = "pagination"
	CapabilityRateLimit     = "rate-limit-retry"
	CapabilityUploads       = "uploads"
	CapabilityErrorDetails  = "error-details"
	CapabilityCustomHeaders = "custom-headers"
)

// StatusRep is the response body of the test service's status resource.
type StatusRep struct {
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
}

// CreateConsumerParams is the body of a POST to the test service's root
// resource, asking it to construct an API consumer pointed at BaseURL (which,
// during contract tests, is one of the harness's mock endpoints).
type CreateConsumerParams struct {
	Tag               string              `json:"tag"`
	CallbackURL       string              `json:"callbackUrl"`
	BaseURL           string              `json:"baseUrl"`
	Headers           map[string]string   `json:"headers,omitempty"`
	AuthToken         string              `json:"authToken,omitempty"`
	TimeoutMS         ldvalue.OptionalInt `json:"timeoutMs,omitempty"`
	MaxRetries        ldvalue.OptionalInt `json:"maxRetries,omitempty"`
	RetryServerErrors bool                `json:"retryServerErrors,omitempty"`
}

// Command names accepted by a consumer entity.
const (
	CommandRegisterUser = "registerUser"
	CommandLogin        = "login"
	CommandGetUser      = "getUser"
	CommandUpdateUser   = "updateUser"
	CommandDeleteUser   = "deleteUser"
	CommandListProducts = "listProducts"
	CommandUploadFile   = "uploadFile"
)

// CommandParams is the body of a POST to a consumer entity's resource. Only
// the field corresponding to Command is set.
type CommandParams struct {
	Command      string              `json:"command"`
	RegisterUser *RegisterUserParams `json:"registerUser,omitempty"`
	Login        *LoginParams        `json:"login,omitempty"`
	GetUser      *GetUserParams      `json:"getUser,omitempty"`
	UpdateUser   *UpdateUserParams   `json:"updateUser,omitempty"`
	DeleteUser   *GetUserParams      `json:"deleteUser,omitempty"`
	ListProducts *ListProductsParams `json:"listProducts,omitempty"`
	UploadFile   *UploadFileParams   `json:"uploadFile,omitempty"`
}

type RegisterUserParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name,omitempty"`
	PromoCode string `json:"promoCode,omitempty"`
}

type LoginParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GetUserParams struct {
	UserID string `json:"userId"`
}

type UpdateUserParams struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

type ListProductsParams struct {
	PageSize ldvalue.OptionalInt `json:"pageSize,omitempty"`
	MaxPages ldvalue.OptionalInt `json:"maxPages,omitempty"`
}

type UploadFileParams struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	DataBase64  string `json:"dataBase64"`
}

// CommandResult is the synchronous reply to a command. Exactly one of the
// result fields is set on success; Error is set when the operation failed,
// including failures the consumer surfaced deliberately (HTTP error statuses
// from the API).
type CommandResult struct {
	User     *UserRep         `json:"user,omitempty"`
	Token    string           `json:"token,omitempty"`
	Products *ProductsRep     `json:"products,omitempty"`
	Upload   *UploadResultRep `json:"upload,omitempty"`
	Deleted  bool             `json:"deleted,omitempty"`
	Error    *ErrorRep        `json:"error,omitempty"`
}

// UserRep is the consumer's view of a user resource.
type UserRep struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// ProductsRep is the consumer's view of a fully paginated product listing.
type ProductsRep struct {
	Items      []ProductRep `json:"items"`
	PagesRead  int          `json:"pagesRead"`
	TotalItems int          `json:"totalItems"`
}

type ProductRep struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type UploadResultRep struct {
	FileID string `json:"fileId"`
	Size   int64  `json:"size"`
}

// ErrorRep describes an API error as the consumer understood it.
type ErrorRep struct {
	StatusCode int              `json:"statusCode,omitempty"`
	Code       string           `json:"code,omitempty"`
	Message    string           `json:"message,omitempty"`
	Details    []ErrorDetailRep `json:"details,omitempty"`
}

type ErrorDetailRep struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Callback message kinds. The consumer entity posts one callback message per
// noteworthy event, tagged with a 1-based counter so the harness can restore
// ordering.
const (
	CallbackKindRetry = "retry"
	CallbackKindPage  = "page"
)

// CallbackMessage is the body of a POST from the test service to the
// harness's callback endpoint, at the subpath /{counter}.
type CallbackMessage struct {
	Kind string `json:"kind"`

	// Retry is set if Kind is "retry": the consumer is about to re-issue a
	// request after a retryable failure.
	Retry *RetryCallback `json:"retry,omitempty"`

	// Page is set if Kind is "page": the consumer finished reading one page
	// of a paginated listing.
	Page *PageCallback `json:"page,omitempty"`
}

type RetryCallback struct {
	Attempt    int   `json:"attempt"`
	StatusCode int   `json:"statusCode"`
	DelayMS    int64 `json:"delayMs"`
}

type PageCallback struct {
	Page      int `json:"page"`
	ItemCount int `json:"itemCount"`
}
