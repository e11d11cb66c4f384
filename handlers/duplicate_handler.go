package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/camden-git/familytreebackend/lineage"
	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/workers"
)

type DuplicateHandler struct {
	Duplicates *services.DuplicateService
	Events     workers.Broadcaster
}

func (dh *DuplicateHandler) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	groups, err := dh.Duplicates.DetectDuplicates(treeID)
	if err != nil {
		log.Printf("Error detecting duplicates in tree %s: %v", treeID, err)
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to detect duplicates")
		return
	}
	if groups == nil {
		groups = []lineage.DuplicateGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// MergeDuplicates merges one confirmed group.
func (dh *DuplicateHandler) MergeDuplicates(w http.ResponseWriter, r *http.Request) {
	treeID := treeIDParam(r)

	var req struct {
		MemberIDs []string `json:"member_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.MemberIDs) < 2 {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "A merge group needs at least two member_ids")
		return
	}

	result, err := dh.Duplicates.MergeGroup(treeID, req.MemberIDs)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMergeOrdering):
			WriteAPIError(w, http.StatusConflict, CodeMergeAborted, err.Error())
		case errors.Is(err, repository.ErrUnknownEndpoint):
			WriteAPIError(w, http.StatusUnprocessableEntity, CodeInvalidInput, err.Error())
		default:
			log.Printf("Error merging %v in tree %s: %v", req.MemberIDs, treeID, err)
			WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "Failed to merge duplicates")
		}
		return
	}

	if len(result.MergedIDs) > 0 && dh.Events != nil {
		dh.Events.Broadcast(realtime.Event{Type: realtime.EventTreeChanged, TreeID: treeID})
	}
	writeJSON(w, http.StatusOK, result)
}
