package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/apperr"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/storage"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestHandleError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   float64
	}{
		{"validation", apperr.Validation("title", "标题过短"), 400, 40000},
		{"conflict", apperr.Conflict("状态不允许"), 409, 40900},
		{"forbidden", apperr.Forbidden("无权限"), 403, 40300},
		{"not found", apperr.NotFound("审核", "a-1"), 404, 40400},
		{"wrapped conflict", fmt.Errorf("关闭审核失败: %w", apperr.Conflict("存在未关闭的严重不符合项")), 409, 40900},
		{"repository not found", fmt.Errorf("查询失败: %w", repository.ErrNotFound), 404, 40400},
		{"storage not configured", fmt.Errorf("上传证据文件失败: %w", storage.ErrNotConfigured), 503, 50300},
		{"unexpected", errors.New("connection reset"), 500, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext("/")
			handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := testutil.ParseResponse(w)
			assert.Equal(t, tt.code, resp["code"])
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestError_ClampsStatus(t *testing.T) {
	c, w := newTestContext("/")
	Error(c, 42, "bad code")
	assert.Equal(t, 500, w.Code)
}

func TestGetPagination(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=0&page_size=0", 1, 20},
		{"?page=-2&page_size=500", 1, 20},
		{"?page=abc", 1, 20},
	}
	for _, tt := range tests {
		c, _ := newTestContext("/items" + tt.query)
		page, pageSize := GetPagination(c)
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.pageSize, pageSize, tt.query)
	}
}

func TestList_TotalPages(t *testing.T) {
	c, w := newTestContext("/")
	List(c, []string{"a", "b"}, 41, 1, 20)

	require.Equal(t, 200, w.Code)
	data := testutil.ResponseData(w)
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total_pages"])
	assert.Equal(t, float64(41), pagination["total"])
}

func TestActor_FromContext(t *testing.T) {
	c, _ := newTestContext("/")
	c.Set("user_id", "u-1")
	c.Set("roles", []string{"Auditor"})

	a := actor(c)
	assert.Equal(t, "u-1", a.UserID)
	assert.Equal(t, []string{"Auditor"}, a.Roles)

	empty, _ := newTestContext("/")
	assert.Equal(t, "", actor(empty).UserID)
	assert.Nil(t, actor(empty).Roles)
}

func TestMinTrimValidator(t *testing.T) {
	registerValidators()

	type req struct {
		Text string `binding:"mintrim=3"`
	}
	assert.NoError(t, binding.Validator.ValidateStruct(&req{Text: "abc"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&req{Text: "  审核员  "}))
	assert.Error(t, binding.Validator.ValidateStruct(&req{Text: "  ab  "}))
	assert.Error(t, binding.Validator.ValidateStruct(&req{Text: "     "}))
}
