package testing

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/Mickael78000/voting-dapp/api/transport"
	"github.com/gin-gonic/gin"
)

// PerformRequest Helper for performing requests in tests.
func PerformRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	reqBody := &bytes.Buffer{}
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			panic("failed to marshal request body: " + err.Error())
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

// SignerHeaders returns an Authorization header carrying a fresh token for signer.
func SignerHeaders(secret []byte, signer string) map[string]string {
	token, err := transport.IssueSignerToken(secret, signer, time.Hour)
	if err != nil {
		panic("failed to issue signer token: " + err.Error())
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// DecodeBody unmarshals a recorded JSON response into T.
func DecodeBody[T any](res *httptest.ResponseRecorder) T {
	var out T
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		panic("failed to unmarshal response body: " + err.Error())
	}
	return out
}
