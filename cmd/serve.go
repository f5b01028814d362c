package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/db"
	"github.com/otnemrasordep/muspy/model"
	"github.com/otnemrasordep/muspy/util"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var servedResults *model.ResultSet

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the last analyze run over HTTP",
	Long:  `Loads the persisted result set and serves it as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

// LoadServeFiles loads the persisted result set into memory. Split
// out so tests can exercise the handlers without a listener.
func LoadServeFiles() {
	path := filepath.Join(constants.GetOutDir(), constants.ResultSetFilename)
	results, err := util.ReadBinary[*model.ResultSet](path)
	if err != nil {
		panic("Could not load result set (run analyze first): " + err.Error())
	}
	servedResults = results
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}

func HandleResults(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(servedResults)
}

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(servedResults.Metrics)
}

type rowResponse struct {
	model.Row
	Metadata *model.ScoreMetadata `json:"metadata,omitempty"`
}

func HandleRow(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || idx < 0 || idx >= len(servedResults.Rows) {
		writeError(w, http.StatusNotFound, "no such row")
		return
	}

	res := rowResponse{Row: servedResults.Rows[idx]}
	if db.Enabled() {
		name := filepath.Base(res.Path)
		metadatas, err := db.GetScoreMetadatas([]string{name})
		if err != nil {
			fmt.Printf("metadata lookup failed: %v\n", err)
		} else if md, ok := metadatas[name]; ok {
			res.Metadata = &md
		}
	}
	json.NewEncoder(w).Encode(res)
}

func serve() {
	LoadServeFiles()

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/results", HandleResults).Methods("GET")
	router.HandleFunc("/metrics", HandleMetrics).Methods("GET")
	router.HandleFunc("/rows/{index}", HandleRow).Methods("GET")

	handler := cors.Default().Handler(router)
	log.Fatal(http.ListenAndServe(":8080", handler))
}
