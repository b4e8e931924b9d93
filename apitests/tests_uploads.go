package apitests

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoUploadTests checks the file-upload operation: multipart encoding of the
// request and surfacing of the provider's validation rejections.
func DoUploadTests(t *T) {
	t.RequireCapability(servicedef.CapabilityUploads)

	fileData := []byte("name,qty\nwidget,3\n")
	uploadCommand := servicedef.CommandParams{
		Command: servicedef.CommandUploadFile,
		UploadFile: &servicedef.UploadFileParams{
			FileName:    "inventory.csv",
			ContentType: "text/csv",
			DataBase64:  base64.StdEncoding.EncodeToString(fileData),
		},
	}

	t.Run("sends multipart form data with a file part", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(201, `{"fileId":"f-1","size":18}`))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(uploadCommand))
		require.NotNil(t, result.Upload)
		assert.Equal(t, "f-1", result.Upload.FileID)

		request := t.AwaitRequest()
		assert.Equal(t, "POST", request.Method, "incorrect request method")
		assert.Equal(t, "/api/uploads", request.Path, "incorrect request path")

		mediaType, params, err := mime.ParseMediaType(request.Headers.Get("Content-Type"))
		require.NoError(t, err, "missing or malformed Content-Type header")
		require.Equal(t, "multipart/form-data", mediaType, "upload should be multipart/form-data")

		reader := multipart.NewReader(bytes.NewReader(request.Body), params["boundary"])
		part, err := reader.NextPart()
		require.NoError(t, err, "multipart body had no parts")
		assert.Equal(t, "file", part.FormName(), "first part should be the file")
		assert.Equal(t, "inventory.csv", part.FileName())
		assert.Equal(t, "text/csv", part.Header.Get("Content-Type"))
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, fileData, content, "file content should arrive unmodified")
	})

	t.Run("unsupported media type rejection is surfaced", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(415, "unsupported_media_type", "only csv and png files are accepted"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(uploadCommand), 415)
		assert.Equal(t, "unsupported_media_type", errorRep.Code)
	})

	t.Run("payload too large rejection is surfaced", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(413, "payload_too_large", "files may not exceed the size limit"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(uploadCommand), 413)
		assert.Equal(t, "payload_too_large", errorRep.Code)
	})

	t.Run("rejections are not retried", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(413, "payload_too_large", "files may not exceed the size limit"))
		t.StartConsumer(withMaxRetries(3))

		t.RequireAPIError(t.SendCommand(uploadCommand), 413)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})
}
