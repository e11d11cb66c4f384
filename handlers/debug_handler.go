package handlers

import (
	"net/http"
	"sort"

	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/workers"
)

type DebugHandler struct {
	ImportProcessor *workers.ImportProcessor
	Hub             *realtime.Hub
}

type QueueStatusResponse struct {
	Queued     int      `json:"queued"`
	Capacity   int      `json:"capacity"`
	Pending    []string `json:"pending"`
	WSClients  int      `json:"ws_clients"`
	QueueFull  bool     `json:"queue_full"`
	HasWorkers bool     `json:"has_workers"`
}

// QueueStatus reports the import queue and the number of websocket clients
func (dh *DebugHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	response := QueueStatusResponse{Pending: []string{}}

	if ip := dh.ImportProcessor; ip != nil {
		response.HasWorkers = true
		response.Queued = len(ip.JobQueue)
		response.Capacity = cap(ip.JobQueue)
		response.QueueFull = response.Queued >= response.Capacity

		ip.Mutex.Lock()
		for key := range ip.Pending {
			response.Pending = append(response.Pending, key)
		}
		ip.Mutex.Unlock()
		sort.Strings(response.Pending)
	}
	if dh.Hub != nil {
		response.WSClients = dh.Hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, response)
}
