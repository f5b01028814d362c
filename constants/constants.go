package constants

import "os"

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// GetMetadataEndpoint returns the DynamoDB endpoint for score metadata
// lookups, or "" when enrichment is disabled.
func GetMetadataEndpoint() string {
	return os.Getenv("METADATA_ENDPOINT")
}

const MetadataTable = "muspy-metadata"

// DefaultBPM is assumed when a source file carries no tempo event.
const DefaultBPM = 120.0

// MusicXMLResolution is the tick resolution MusicXML input is rescaled
// to. Divisions vary per measure and per part, so a fixed target keeps
// ticks comparable within one score.
const MusicXMLResolution = 480

// GrooveResolution is the number of onset cells per measure used by
// the groove consistency metric.
const GrooveResolution = 16

const ResultSetFilename = "results.dat"
