package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/chaosnet/internal/dynamo"
)

type ExportData struct {
	Run    *RunMetadata `json:"run"`
	Steps  int          `json:"steps"`
	Times  []float64    `json:"times"`
	States [][]float64  `json:"states"`
}

// ExportJSON writes a run and its trajectory as one JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, traj *dynamo.Trajectory) error {
	data := ExportData{
		Run:    meta,
		Steps:  traj.Len(),
		Times:  traj.Times,
		States: make([][]float64, traj.Len()),
	}
	for i, s := range traj.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path string, meta *RunMetadata, traj *dynamo.Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, traj)
}
