package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/entity"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/events"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/importer"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/policy"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/compliance/service"
	"github.com/Brezzyslide/Console-Manager-Company-sub004/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	*testutil.TestEnv
	hub        *events.Hub
	templateID string
	indicators []entity.TemplateIndicator
}

var (
	adminToken    = testutil.TokenFor(policy.RoleCompanyAdmin)
	auditorToken  = testutil.TokenFor(policy.RoleAuditor)
	reviewerToken = testutil.TokenFor(policy.RoleReviewer)
	staffToken    = testutil.TokenFor(policy.RoleStaffReadOnly)
)

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	svc := service.NewServices(db, nil, service.DefaultOptions())
	hub := events.NewHub(nil)
	svc.SetPublisher(hub)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	NewHandlers(svc, hub).RegisterRoutes(api)

	templateID, indicators := testutil.SeedIndicators(t, db, 3)
	return &apiEnv{
		TestEnv:    &testutil.TestEnv{DB: db, Router: router, T: t},
		hub:        hub,
		templateID: templateID,
		indicators: indicators,
	}
}

func (e *apiEnv) createAudit(t *testing.T) string {
	t.Helper()
	w := testutil.DoRequest(e.Router, "POST", "/api/v1/audits", map[string]interface{}{
		"template_id": e.templateID,
		"title":       "Site audit Q3",
		"type":        "INTERNAL",
		"scope_start": "2026-07-01T00:00:00Z",
		"scope_end":   "2026-09-30T00:00:00Z",
	}, auditorToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.ResponseData(w)["id"].(string)
}

func doMultipart(e *apiEnv, path string, fields map[string]string, fileName string, content []byte, token string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		part, _ := mw.CreateFormFile("file", fileName)
		part.Write(content)
	}
	mw.Close()

	req, _ := http.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func TestAuditAPI_RequiresAuth(t *testing.T) {
	env := setupAPI(t)
	w := testutil.DoRequest(env.Router, "GET", "/api/v1/audits", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditAPI_CreateValidationAndPermissions(t *testing.T) {
	env := setupAPI(t)

	body := map[string]interface{}{
		"template_id": env.templateID,
		"title":       "Site audit Q3",
		"type":        "INTERNAL",
		"scope_start": "2026-07-01T00:00:00Z",
		"scope_end":   "2026-09-30T00:00:00Z",
	}
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/audits", body, staffToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	body["title"] = "  ab  "
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits", body, auditorToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body["title"] = "Site audit Q3"
	body["scope_end"] = "2026-06-01T00:00:00Z"
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits", body, auditorToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := env.createAudit(t)
	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits/"+id, nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DRAFT", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits/missing-id", nil, staffToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits?status=DRAFT", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	pagination := testutil.ResponseData(w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total"])
}

func TestAuditAPI_RatingToClose(t *testing.T) {
	env := setupAPI(t)
	id := env.createAudit(t)

	w := testutil.DoRequest(env.Router, "PUT", "/api/v1/audits/"+id+"/responses", map[string]interface{}{
		"indicator_id": env.indicators[0].ID,
		"rating":       "MAJOR_NC",
		"comment":      "No incident register maintained on site",
	}, auditorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	finding := testutil.ResponseData(w)["finding"].(map[string]interface{})
	assert.Equal(t, "MAJOR_NC", finding["severity"])
	assert.Equal(t, "OPEN", finding["status"])

	// 非 CONFORMANCE 评级说明过短
	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/audits/"+id+"/responses", map[string]interface{}{
		"indicator_id": env.indicators[1].ID,
		"rating":       "MINOR_NC",
		"comment":      "short",
	}, auditorToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits/"+id, nil, auditorToken)
	assert.Equal(t, "IN_PROGRESS", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits/"+id+"/complete", nil, auditorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "IN_REVIEW", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits/"+id+"/unrated", nil, auditorToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ResponseData(w)["items"], 2)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits/"+id+"/review-responses", map[string]interface{}{
		"indicator_id": env.indicators[1].ID,
		"rating":       "CONFORMANCE",
	}, reviewerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 已评级的指标不能在复核阶段再补评
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits/"+id+"/review-responses", map[string]interface{}{
		"indicator_id": env.indicators[1].ID,
		"rating":       "CONFORMANCE",
	}, reviewerToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/audits/"+id+"/score", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	score := testutil.ResponseData(w)
	assert.Equal(t, float64(2), score["rated_count"])
	assert.Equal(t, float64(3), score["total_count"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits/"+id+"/close", nil, auditorToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/audits/"+id+"/close",
		map[string]string{"reason": "Director accepted risk pending follow-up audit"}, auditorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CLOSED", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/activity/audit/"+id, nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, testutil.ResponseData(w)["items"])
}

func TestFindingAPI_RaiseAndUnderReview(t *testing.T) {
	env := setupAPI(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/findings", map[string]interface{}{
		"severity":     "MINOR_NC",
		"finding_text": "too short",
	}, reviewerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/findings", map[string]interface{}{
		"severity":     "MINOR_NC",
		"finding_text": "Fire drill log missing two signatures",
	}, reviewerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := testutil.ResponseData(w)["id"].(string)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/findings/"+id+"/under-review", nil, reviewerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UNDER_REVIEW", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/findings/"+id+"/under-review", nil, reviewerToken)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEvidenceAPI_SubmitAndDecide(t *testing.T) {
	env := setupAPI(t)
	auditID := env.createAudit(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests", map[string]interface{}{
		"audit_id":      auditID,
		"evidence_type": "POLICY",
		"description":   "Current medication policy",
	}, reviewerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	requestID := testutil.ResponseData(w)["id"].(string)

	// 未配置对象存储时上传返回 503
	w = doMultipart(env, "/api/v1/evidence-requests/"+requestID+"/submissions",
		map[string]string{"kind": "UPLOAD"}, "policy.pdf", []byte("%PDF-1.4"), reviewerToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests/"+requestID+"/submissions", map[string]interface{}{
		"kind":          "LINK",
		"document_name": "Medication policy v3",
		"url":           "ftp://example.com/policy",
	}, reviewerToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests/"+requestID+"/submissions", map[string]interface{}{
		"kind":          "LINK",
		"document_name": "Medication policy v3",
		"url":           "https://docs.example.com/policy-v3",
	}, reviewerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := testutil.ResponseData(w)["id"].(string)

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/evidence-items/"+itemID+"/download", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://docs.example.com/policy-v3", testutil.ResponseData(w)["url"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests/"+requestID+"/start-review", nil, reviewerToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "UNDER_REVIEW", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests/"+requestID+"/decision",
		map[string]string{"decision": "ACCEPTED"}, reviewerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ACCEPTED", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/evidence-requests/"+requestID+"/decision",
		map[string]string{"decision": "REJECTED", "note": "Policy is not signed by the director"}, reviewerToken)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDocumentReviewAPI_Checklist(t *testing.T) {
	env := setupAPI(t)
	testutil.SeedChecklist(t, env.DB, "POLICY")

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/document-checklists", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, testutil.ResponseData(w)["items"], "POLICY")

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/document-checklists/POLICY", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.ResponseData(w)["items"], 3)
}

func TestComplianceAPI_RunLifecycle(t *testing.T) {
	env := setupAPI(t)
	tpl := testutil.SeedComplianceTemplate(t, env.DB, entity.FrequencyWeekly)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/compliance/runs", map[string]interface{}{
		"template_id":     tpl.ID,
		"scope_entity_id": "site-001",
		"date":            "2026-10-14",
	}, auditorToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	runID := testutil.ResponseData(w)["id"].(string)

	// 同一周内再次创建返回已有检查
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/compliance/runs", map[string]interface{}{
		"template_id":     tpl.ID,
		"scope_entity_id": "site-001",
		"date":            "2026-10-16",
	}, auditorToken)
	require.Equal(t, http.StatusConflict, w.Code)
	resp := testutil.ParseResponse(w)
	assert.Equal(t, float64(codeRunExists), resp["code"])
	assert.Equal(t, runID, testutil.ResponseData(w)["existing_run_id"])

	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/compliance/runs/"+runID+"/responses", map[string]interface{}{
		"responses": []map[string]string{
			{"item_id": tpl.Items[0].ID, "value": "no"},
			{"item_id": tpl.Items[1].ID, "value": "3.5"},
			{"item_id": tpl.Items[2].ID, "value": "All clear"},
		},
	}, auditorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/compliance/runs/"+runID+"/responses", map[string]interface{}{
		"responses": []map[string]string{},
	}, auditorToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/compliance/runs/"+runID+"/submit", nil, auditorToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := testutil.ResponseData(w)
	assert.Equal(t, "red", result["status_color"])
	assert.Equal(t, float64(1), result["actions_created"])

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/compliance/actions?run_id="+runID, nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	items := testutil.ResponseData(w)["items"].([]interface{})
	require.Len(t, items, 1)
	actionID := items[0].(map[string]interface{})["id"].(string)

	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/compliance/actions/"+actionID+"/status",
		map[string]string{"status": "IN_PROGRESS"}, reviewerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/compliance/actions/"+actionID+"/status",
		map[string]string{"status": "OPEN"}, reviewerToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.DoRequest(env.Router, "PUT", "/api/v1/compliance/actions/"+actionID+"/status",
		map[string]string{"status": "CLOSED"}, reviewerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CLOSED", testutil.ResponseData(w)["status"])

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/compliance/runs/"+runID+"/lock", nil, auditorToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/compliance/runs/"+runID+"/lock", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "LOCKED", testutil.ResponseData(w)["status"])
}

func TestReferenceAPI_TemplateDownload(t *testing.T) {
	env := setupAPI(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/reference/templates/indicators", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/reference/templates/unknown", nil, staffToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReferenceAPI_ImportIndicators(t *testing.T) {
	env := setupAPI(t)

	f, err := importer.Template(importer.KindIndicators)
	require.NoError(t, err)
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"IND-A", "Participants have a support plan", "", 1}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"IND-B", "Incidents are reported within 24h", "", 2}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"", "missing code", "", 3}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	w := doMultipart(env, "/api/v1/reference/import/indicators", nil, "indicators.xlsx", buf.Bytes(), auditorToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doMultipart(env, "/api/v1/reference/import/indicators", nil, "indicators.xlsx", buf.Bytes(), adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.ResponseData(w)
	assert.Equal(t, float64(2), data["imported"])
	assert.Equal(t, float64(1), data["failed"])
	assert.NotEmpty(t, data["template_id"])

	w = doMultipart(env, "/api/v1/reference/import/indicators", nil, "", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
