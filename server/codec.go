package server

import (
	"net/http"

	"github.com/bytedance/sonic"
)

var jsonAPI = sonic.Config{UseNumber: true}.Froze()

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonAPI.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = jsonAPI.Marshal(errorBody{Detail: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
