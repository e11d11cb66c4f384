package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/gedcom"
	"github.com/camden-git/familytreebackend/handlers"
	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const family = `0 HEAD
0 @I1@ INDI
1 NAME Anna /Holm/
1 FAMS @F1@
0 @I2@ INDI
1 NAME Erik /Holm/
1 FAMC @F1@
0 @F1@ FAM
1 WIFE @I1@
1 CHIL @I2@
0 TRLR
`

// syncQueue commits submitted imports immediately.
type syncQueue struct {
	imports *services.ImportService
}

func (q syncQueue) Submit(treeID, filename string, content []byte) (database.ImportRun, error) {
	return q.imports.Commit(treeID, filename, content, nil)
}

func newRouter(t *testing.T, maxUpload int64) http.Handler {
	t.Helper()
	db := testhelper.NewGormDB(t)
	people := repository.NewPersonRepository(db)
	rels := repository.NewRelationshipRepository(db)
	tree := services.NewTreeService(people, rels, services.NewGenerationService(people, rels, 28, 100))
	imports := services.NewImportService(testhelper.NewLedgerDB(t), tree, 100, 0)

	return handlers.NewRouter(handlers.RouterConfig{
		Trees:      &handlers.TreeHandler{Trees: tree},
		Duplicates: &handlers.DuplicateHandler{Duplicates: services.NewDuplicateService(people, rels)},
		Imports: &handlers.ImportHandler{
			Imports:        imports,
			Queue:          syncQueue{imports: imports},
			MaxUploadBytes: maxUpload,
		},
		Debug:          &handlers.DebugHandler{},
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func do(t *testing.T, h http.Handler, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}
	return do(t, h, method, path, "application/json", body)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handlers.APIErrorResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Errors)
	return resp.Errors[0].Code
}

func TestPreviewImport(t *testing.T) {
	h := newRouter(t, 1<<20)

	rec := do(t, h, http.MethodPost, "/api/imports/preview?filename=holm.ged", "text/plain", strings.NewReader(family))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result gedcom.Result
	decode(t, rec, &result)
	assert.Equal(t, gedcom.FormatGEDCOM, result.Format)
	assert.Equal(t, 2, result.Stats.TotalPeople)
	assert.Equal(t, 1, result.Stats.TotalRelationships)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "people.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("First Name,Last Name\nOla,Nordmann\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec = do(t, h, http.MethodPost, "/api/imports/preview", mw.FormDataContentType(), &form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &result)
	assert.Equal(t, gedcom.FormatCSV, result.Format)
	assert.Equal(t, 1, result.Stats.TotalPeople)

	rec = do(t, h, http.MethodPost, "/api/imports/preview", "text/plain", strings.NewReader("   "))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, handlers.CodeUnprocessableFile, errorCode(t, rec))
}

func TestPreviewImport_TooLarge(t *testing.T) {
	h := newRouter(t, 32)

	rec := do(t, h, http.MethodPost, "/api/imports/preview", "text/plain", strings.NewReader(family))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, handlers.CodePayloadTooLarge, errorCode(t, rec))
}

func TestTreeEndpoints(t *testing.T) {
	h := newRouter(t, 1<<20)

	for _, p := range []models.Person{
		{ID: "mom", FirstName: "Kari", LastName: "Dahl"},
		{ID: "b", FirstName: "Bjorn", LastName: "Dahl"},
		{ID: "a", FirstName: "Astrid", LastName: "Dahl"},
	} {
		rec := doJSON(t, h, http.MethodPost, "/api/trees/family-1/members", p)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(t, h, http.MethodPost, "/api/trees/family-1/members",
		models.Person{ID: "mom", FirstName: "Other", LastName: "Kari"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handlers.CodeConflict, errorCode(t, rec))

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/relationships",
		models.Relationship{FromID: "mom", ToID: "a", Type: models.RelationshipParent})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/relationships",
		models.Relationship{FromID: "a", ToID: "mom", Type: models.RelationshipChild})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/relationships",
		models.Relationship{FromID: "mom", ToID: "ghost", Type: models.RelationshipParent})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/relationships",
		models.Relationship{FromID: "mom", ToID: "b", Type: "cousin"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/relationships/batch", map[string]interface{}{
		"relationships": []models.Relationship{
			{FromID: "mom", ToID: "b", Type: models.RelationshipParent},
			{FromID: "mom", ToID: "a", Type: models.RelationshipParent},
		},
		"batch_size": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var batch repository.BatchResult
	decode(t, rec, &batch)
	assert.Equal(t, 1, batch.Imported)
	assert.Equal(t, 1, batch.Skipped)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/family-1/generations", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report services.GenerationReport
	decode(t, rec, &report)
	assert.Equal(t, 2, report.Levels)

	rec = do(t, h, http.MethodGet, "/api/trees/family-1?siblings=true&sort=name_asc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tree services.FamilyTree
	decode(t, rec, &tree)
	require.Len(t, tree.People, 3)
	assert.Equal(t, "a", tree.People[0].ID)
	assert.Len(t, tree.Relationships, 3)
	assert.Equal(t, 2, tree.Stats.Generations)

	rec = do(t, h, http.MethodGet, "/api/trees/family-1?sort=shoe_size", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/trees/family-1?siblings=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/trees/bad!tree", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateEndpoints(t *testing.T) {
	h := newRouter(t, 1<<20)

	rec := doJSON(t, h, http.MethodPost, "/api/trees/t1/members/batch", map[string]interface{}{
		"members": []models.Person{
			{ID: "x", FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"},
			{ID: "y", FirstName: "Ann", LastName: "Lee", Occupation: "Nurse"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/trees/t1/duplicates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []lineage.DuplicateGroup
	decode(t, rec, &groups)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"x", "y"}, groups[0].MemberIDs)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/t1/duplicates/merge", map[string]interface{}{"member_ids": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/trees/t1/duplicates/merge", map[string]interface{}{"member_ids": groups[0].MemberIDs})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var merged services.MergeResult
	decode(t, rec, &merged)
	assert.Equal(t, "x", merged.CanonicalID)
	assert.Equal(t, []string{"y"}, merged.MergedIDs)
	assert.Equal(t, []string{"occupation"}, merged.FilledFields)

	rec = do(t, h, http.MethodGet, "/api/trees/t1/duplicates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestImportEndpoints(t *testing.T) {
	h := newRouter(t, 1<<20)

	rec := do(t, h, http.MethodPost, "/api/trees/t1/imports?filename=holm.ged", "text/plain", strings.NewReader(family))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var run database.ImportRun
	decode(t, rec, &run)
	assert.Equal(t, database.StatusDone, run.Status)
	assert.Equal(t, 2, run.PeopleImported)

	rec = do(t, h, http.MethodPost, "/api/trees/t1/imports?filename=again.ged", "text/plain", strings.NewReader(family))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, handlers.CodeAlreadyImported, errorCode(t, rec))

	rec = do(t, h, http.MethodPost, "/api/trees/t1/imports", "text/plain", strings.NewReader(""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/trees/t1/imports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []database.ImportRun
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "holm.ged", runs[0].Filename)

	rec = do(t, h, http.MethodGet, "/debug/imports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status handlers.QueueStatusResponse
	decode(t, rec, &status)
	assert.False(t, status.HasWorkers)
}
