package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/models"
	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/workers"
)

type TreeHandler struct {
	Trees  *services.TreeService
	Events workers.Broadcaster
}

func (th *TreeHandler) treeChanged(treeID string) {
	if th.Events != nil {
		th.Events.Broadcast(realtime.Event{Type: realtime.EventTreeChanged, TreeID: treeID})
	}
}

// GetTree returns every member and relationship of a tree.
// Query: siblings=true adds derived sibling edges, sort=<order> orders the members.
func (th *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)
	query := services.TreeQuery{SortOrder: r.URL.Query().Get("sort")}

	if raw := r.URL.Query().Get("siblings"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid value for siblings, expected true or false")
			return
		}
		query.IncludeSiblings = include
	}
	if query.SortOrder != "" && !database.IsValidSortOrder(query.SortOrder) {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid sort order: "+query.SortOrder)
		return
	}

	tree, err := th.Trees.GetFamilyTree(treeID, query)
	if err != nil {
		log.Printf("Error loading tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to retrieve tree")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (th *TreeHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	var person models.Person
	if err := json.NewDecoder(r.Body).Decode(&person); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	person.TreeID = treeID
	person.CreatedAt, person.UpdatedAt = 0, 0

	if err := th.Trees.AddMember(&person); err != nil {
		if errors.Is(err, repository.ErrDuplicatePerson) {
			WriteAPIError(w, http.StatusConflict, CodeConflict, err.Error())
			return
		}
		log.Printf("Error adding member to tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to add member")
		return
	}
	th.treeChanged(treeID)
	writeJSON(w, http.StatusCreated, person)
}

func (th *TreeHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	var rel models.Relationship
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	rel.TreeID = treeID
	rel.CreatedAt, rel.UpdatedAt = 0, 0

	if err := th.Trees.AddRelationship(&rel); err != nil {
		writeRelationshipError(w, treeID, err)
		return
	}
	th.treeChanged(treeID)
	writeJSON(w, http.StatusCreated, rel)
}

func writeRelationshipError(w http.ResponseWriter, treeID string, err error) {
	switch {
	case errors.Is(err, repository.ErrInvalidRelationship):
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, repository.ErrUnknownEndpoint):
		WriteAPIError(w, http.StatusUnprocessableEntity, CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrDuplicateEdge):
		WriteAPIError(w, http.StatusConflict, CodeConflict, err.Error())
	default:
		log.Printf("Error adding relationship to tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to add relationship")
	}
}

type batchMembersRequest struct {
	Members   []models.Person `json:"members"`
	BatchSize int             `json:"batch_size"`
}

type batchRelationshipsRequest struct {
	Relationships []models.Relationship `json:"relationships"`
	BatchSize     int                   `json:"batch_size"`
}

// BatchAddMembers stores many members at once. Existing ids are skipped.
func (th *TreeHandler) BatchAddMembers(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	var req batchMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	for i := range req.Members {
		req.Members[i].TreeID = treeID
	}

	result := th.Trees.BatchImportMembers(req.Members, req.BatchSize)
	if result.Imported > 0 {
		th.treeChanged(treeID)
	}
	writeJSON(w, http.StatusOK, result)
}

// BatchAddRelationships stores many relationships at once. Edges with unknown endpoints
// or already stored are skipped.
func (th *TreeHandler) BatchAddRelationships(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	var req batchRelationshipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	for i := range req.Relationships {
		req.Relationships[i].TreeID = treeID
	}

	result := th.Trees.BatchImportRelationships(req.Relationships, req.BatchSize)
	if result.Imported > 0 {
		th.treeChanged(treeID)
	}
	writeJSON(w, http.StatusOK, result)
}

func (th *TreeHandler) CalculateGenerations(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	report, err := th.Trees.CalculateGenerations(treeID)
	if err != nil {
		log.Printf("Error calculating generations for tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to calculate generations")
		return
	}
	if report.Updated > 0 {
		th.treeChanged(treeID)
	}
	writeJSON(w, http.StatusOK, report)
}
