package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/clinical-rotation-api/internal/models"
	appErrors "github.com/noah-isme/clinical-rotation-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func newRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(validatorStub{claims: claims}))
	r.GET("/students/:studentId", RBAC(allowed...), func(c *gin.Context) {
		session, _ := SessionFromContext(c)
		c.String(http.StatusOK, session.UserID)
	})
	return r
}

func serve(r *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingOrInvalidTokens(t *testing.T) {
	r := newRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, string(models.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/s1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/s1", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/students/s1", "Bearer bad").Code)

	w := serve(r, "/students/s1", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRBACSelfMatchesLinkedStudent(t *testing.T) {
	student := &models.JWTClaims{UserID: "u3", Role: models.RoleStudent, RelatedID: "s1"}
	r := newRouter(student, string(models.RoleAdmin), string(models.RoleLecturer), Self)

	assert.Equal(t, http.StatusOK, serve(r, "/students/s1", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/students/s2", "Bearer good").Code)

	unlinked := newRouter(&models.JWTClaims{UserID: "u9", Role: models.RoleStudent}, Self)
	assert.Equal(t, http.StatusForbidden, serve(unlinked, "/students/s1", "Bearer good").Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u2", Role: models.RoleLecturer}}))
	r.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/staff", RequireRoles(models.RoleAdmin, models.RoleLecturer), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, "/admin", "Bearer good").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/staff", "Bearer good").Code)
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var meta map[string]interface{}
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, "/", "")
	assert.Equal(t, true, meta[cacheHitKey])
}
