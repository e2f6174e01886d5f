package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase drives a single gin handler with a bodiless request, as the
// ops and probe endpoints take all input from the path and query.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	ExpectedStatus int
	// ExpectedBody holds top-level envelope keys that must match
	ExpectedBody map[string]any
	Validate     func(t *testing.T, tc *TestContext)
}

// RunHTTPTestCases runs each case as a subtest
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler directly with a test context
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, tc.Path, nil)

	handler(c)
	checkCase(t, &TestContext{Context: c, Recorder: w}, tc)
}

// Serve sends a bodiless request through a full handler, routing and
// middleware included
func Serve(h http.Handler, method, path string) *TestContext {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return &TestContext{Recorder: w}
}

func checkCase(t *testing.T, ctx *TestContext, tc HTTPTestCase) {
	t.Helper()
	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, ctx.ResponseCode(), "Unexpected status code")
	}
	if tc.ExpectedBody != nil {
		body := JSONResponse(t, ctx)
		for key, want := range tc.ExpectedBody {
			assert.Equal(t, want, body[key], "Unexpected value for key: %s", key)
		}
	}
	if tc.Validate != nil {
		tc.Validate(t, ctx)
	}
}

// JSONResponse parses the response body as a JSON object
func JSONResponse(t *testing.T, tc *TestContext) map[string]any {
	t.Helper()
	return JSONResponseAs[map[string]any](t, tc)
}

// JSONResponseAs parses the response body into T
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &result), "Failed to parse JSON response")
	return result
}

// ResponseData returns the "data" object of a success envelope
func ResponseData(t *testing.T, tc *TestContext) map[string]any {
	t.Helper()
	data, ok := JSONResponse(t, tc)["data"].(map[string]any)
	require.True(t, ok, "Expected data object in response")
	return data
}

// AssertErrorResponse asserts an error envelope carrying expectedCode
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) {
	t.Helper()
	resp := JSONResponse(t, tc)
	assert.Equal(t, false, resp["success"], "Expected success to be false")

	errMap, ok := resp["error"].(map[string]any)
	require.True(t, ok, "Expected error object in response")
	assert.Equal(t, expectedCode, errMap["code"], "Unexpected error code")
}
