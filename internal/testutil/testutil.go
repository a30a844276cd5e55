package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/repository"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_compliance"
	JWTSecret  = "compliance-test-jwt-secret"
)

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	if root := projectRoot(); root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB opens a connection bound to a fresh schema and migrates every
// compliance table into it. The schema is dropped on cleanup. Tests are
// skipped when no database is reachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "compliance")
	password := getEnv("DB_PASSWORD", "compliance")
	dbname := getEnv("DB_NAME", "compliance")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	if err := setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)).Error; err != nil {
		t.Skipf("cannot create test schema: %v", err)
	}
	if sqlSetup, err := setupDB.DB(); err == nil {
		sqlSetup.Close()
	}

	// search_path 写入DSN，连接池里所有连接都使用测试schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			if sqlClean, _ := cleanDB.DB(); sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles ...string) string {
	token, err := middleware.GenerateToken(JWTSecret, "compliance-test", userID, name, roles, 24*time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// TokenFor returns a token for a user holding a single role
func TokenFor(role string) string {
	return GenerateTestToken("user-"+role, role+" User", role)
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ResponseData returns the "data" object of an envelope response
func ResponseData(w *httptest.ResponseRecorder) map[string]interface{} {
	data, _ := ParseResponse(w)["data"].(map[string]interface{})
	return data
}

// SeedIndicators creates n indicators under a fresh audit template id
func SeedIndicators(t *testing.T, db *gorm.DB, n int) (string, []entity.TemplateIndicator) {
	t.Helper()
	templateID := uuid.New().String()
	items := make([]entity.TemplateIndicator, n)
	for i := range items {
		items[i] = entity.TemplateIndicator{
			ID:         uuid.New().String(),
			TemplateID: templateID,
			Code:       fmt.Sprintf("IND-%02d", i+1),
			Text:       fmt.Sprintf("Indicator %d", i+1),
			SortOrder:  i + 1,
		}
	}
	if n > 0 {
		if err := db.Create(&items).Error; err != nil {
			t.Fatalf("Failed to seed indicators: %v", err)
		}
	}
	return templateID, items
}

// SeedChecklist creates a document checklist with one hygiene, one
// implementation and one critical item
func SeedChecklist(t *testing.T, db *gorm.DB, documentType string) []entity.DocumentChecklistItem {
	t.Helper()
	items := []entity.DocumentChecklistItem{
		{ID: uuid.New().String(), DocumentType: documentType, Code: "H1", Section: entity.SectionHygiene, Text: "Has version and owner", SortOrder: 1},
		{ID: uuid.New().String(), DocumentType: documentType, Code: "I1", Section: entity.SectionImplementation, Text: "Staff acknowledged", SortOrder: 2},
		{ID: uuid.New().String(), DocumentType: documentType, Code: "C1", Section: entity.SectionCritical, IsCritical: true, Text: "Signed by director", SortOrder: 3},
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("Failed to seed checklist: %v", err)
	}
	return items
}

// SeedComplianceTemplate creates a template with a critical YES_NO_NA item,
// a bounded NUMBER item and a TEXT item
func SeedComplianceTemplate(t *testing.T, db *gorm.DB, freq entity.Frequency) *entity.ComplianceTemplate {
	t.Helper()
	minV, maxV := 0.0, 5.0
	tpl := &entity.ComplianceTemplate{
		ID:        uuid.New().String(),
		Name:      "Site safety " + string(freq),
		ScopeType: entity.ScopeSite,
		Frequency: freq,
	}
	if err := db.Omit("Items").Create(tpl).Error; err != nil {
		t.Fatalf("Failed to seed compliance template: %v", err)
	}
	tpl.Items = []entity.ComplianceTemplateItem{
		{ID: uuid.New().String(), TemplateID: tpl.ID, Code: "FIRE", Text: "Fire exits clear", ResponseType: entity.ResponseTypeYesNoNA, IsCritical: true, SortOrder: 1},
		{ID: uuid.New().String(), TemplateID: tpl.ID, Code: "FRIDGE", Text: "Fridge temperature", ResponseType: entity.ResponseTypeNumber, MinValue: &minV, MaxValue: &maxV, SortOrder: 2},
		{ID: uuid.New().String(), TemplateID: tpl.ID, Code: "NOTES", Text: "Handover notes", ResponseType: entity.ResponseTypeText, SortOrder: 3},
	}
	if err := db.Create(&tpl.Items).Error; err != nil {
		t.Fatalf("Failed to seed compliance items: %v", err)
	}
	return tpl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
