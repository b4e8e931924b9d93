package sampleapp

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doUpload(t *testing.T, handler http.Handler, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadFile(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Handler()
	_, token := registerAndLogin(t, handler, "ada@example.com")

	data := []byte("name,price\nwaffle,1.99\n")
	body, contentType := multipartBody(t, "products.csv", "text/csv", data)
	rec := doUpload(t, handler, token, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result uploadResponse
	decodeBody(t, rec, &result)
	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, int64(len(data)), result.Size)

	stored := app.uploads.files[result.FileID]
	require.NotNil(t, stored)
	assert.Equal(t, "products.csv", stored.Name)
	assert.Equal(t, "text/csv", stored.ContentType)
}

func TestUploadRequiresAuth(t *testing.T) {
	app := newTestApp(t, testConfig())
	body, contentType := multipartBody(t, "a.csv", "text/csv", []byte("x"))
	req := httptest.NewRequest("POST", "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadRejectsUnsupportedMediaType(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Handler()
	_, token := registerAndLogin(t, handler, "ada@example.com")

	body, contentType := multipartBody(t, "run.exe", "application/x-msdownload", []byte("MZ"))
	rec := doUpload(t, handler, token, body, contentType)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, codeUnsupportedMediaType, decodeError(t, rec).Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	config := testConfig()
	config.MaxUploadBytes = 100
	app := newTestApp(t, config)
	handler := app.Handler()
	_, token := registerAndLogin(t, handler, "ada@example.com")

	body, contentType := multipartBody(t, "big.csv", "text/csv", bytes.Repeat([]byte("a"), 500))
	rec := doUpload(t, handler, token, body, contentType)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, codePayloadTooLarge, decodeError(t, rec).Code)
}

func TestUploadRequiresFilePart(t *testing.T) {
	app := newTestApp(t, testConfig())
	handler := app.Handler()
	_, token := registerAndLogin(t, handler, "ada@example.com")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("description", "no file here"))
	require.NoError(t, writer.Close())

	rec := doUpload(t, handler, token, &buf, writer.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, codeValidationError, body.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "file", body.Details[0].Field)
}
