package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// UploadRequest describes one file to send to POST /api/uploads as
// multipart/form-data. The file goes in a part named "file"; Description, if
// set, goes in a text part named "description".
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Description string
}

// UploadResult is the body of a successful upload response.
type UploadResult struct {
	FileID string `json:"fileId"`
	Size   int64  `json:"size"`
}

// UploadFile sends a file to the API. Rejections (unsupported media type,
// payload too large) come back as *APIError with the corresponding status.
func (c *Client) UploadFile(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.FileName == "" {
		return nil, fmt.Errorf("FileName is required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	if req.ContentType != "" {
		partHeader.Set("Content-Type", req.ContentType)
	}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := writer.WriteField("description", req.Description); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var result UploadResult
	if err := c.do(ctx, requestSpec{
		method:      http.MethodPost,
		path:        "/api/uploads",
		body:        buf.Bytes(),
		contentType: writer.FormDataContentType(),
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
