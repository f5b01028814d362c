// Package db fetches optional per-score metadata (artist, title,
// release, year) from DynamoDB. Enrichment is best-effort: when no
// endpoint is configured the rest of the pipeline never notices.
package db

import (
	"fmt"
	"strconv"

	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/model"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
)

// batchGet is DynamoDB's BatchGetItem key limit per request.
const batchGet = 10

// Enabled reports whether a metadata endpoint is configured.
func Enabled() bool {
	return constants.GetMetadataEndpoint() != ""
}

// GetScoreMetadatas batch-fetches metadata for the given file
// identifiers, keyed by identifier. Missing entries are simply absent.
func GetScoreMetadatas(filenames []string) (map[string]model.ScoreMetadata, error) {
	res := make(map[string]model.ScoreMetadata)
	if len(filenames) == 0 || !Enabled() {
		return res, nil
	}

	endpoint := constants.GetMetadataEndpoint()
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String("localhost"),
		Endpoint: &endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create a DynamoDB session: %w", err)
	}
	client := dynamodb.New(sess)

	for start := 0; start < len(filenames); start += batchGet {
		end := start + batchGet
		if end > len(filenames) {
			end = len(filenames)
		}

		var keys []map[string]*dynamodb.AttributeValue
		for _, filename := range filenames[start:end] {
			keys = append(keys, map[string]*dynamodb.AttributeValue{
				"PK": {S: aws.String(filename)},
			})
		}

		input := &dynamodb.BatchGetItemInput{
			RequestItems: map[string]*dynamodb.KeysAndAttributes{
				constants.MetadataTable: {Keys: keys},
			},
		}
		dbres, err := client.BatchGetItem(input)
		if err != nil {
			return nil, fmt.Errorf("error from DynamoDB: %w", err)
		}

		for _, v := range dbres.Responses[constants.MetadataTable] {
			var s model.ScoreMetadata
			if year, ok := v["Year"]; ok && year.N != nil {
				parsed, _ := strconv.ParseUint(*year.N, 10, 32)
				s.Year = uint(parsed)
			}
			if artist, ok := v["Artist"]; ok && artist.S != nil {
				s.Artist = *artist.S
			}
			if release, ok := v["Release"]; ok && release.S != nil {
				s.Release = *release.S
			}
			if title, ok := v["Title"]; ok && title.S != nil {
				s.Title = *title.S
			}
			if pk, ok := v["PK"]; ok && pk.S != nil {
				res[*pk.S] = s
			}
		}
	}

	return res, nil
}
