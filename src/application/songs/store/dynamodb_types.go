package store

import (
	"strconv"

	"github.com/aws/aws-sdk-go/service/dynamodb"

	"stemsep/src/application/songs/entity"
	"stemsep/src/lib/cerr"
)

func songFromDynamoItem(item map[string]*dynamodb.AttributeValue) (entity.Song, error) {
	songID, err := getStringField(item, idField)
	if err != nil {
		return entity.Song{}, cerr.Wrap(err).Error("Failed to get song ID")
	}

	sourceURL, err := getStringField(item, "source_url")
	if err != nil {
		return entity.Song{}, cerr.Wrap(err).Error("Failed to get source URL")
	}

	statusVal, err := getStringField(item, "status")
	if err != nil {
		return entity.Song{}, cerr.Wrap(err).Error("Failed to get status")
	}

	status, err := entity.ConvertToStatus(statusVal)
	if err != nil {
		return entity.Song{}, cerr.Wrap(err).Error("Failed to convert status string value to enum")
	}

	return entity.Song{
		ID:             songID,
		SourceURL:      sourceURL,
		Status:         status,
		StatusMessage:  getOptionalStringField(item, "status_message"),
		Progress:       getOptionalNumberField(item, "progress"),
		StatusDebugLog: getOptionalStringField(item, "status_debug_log"),
		StemURLs:       getStemURLsField(item, "stem_urls"),
	}, nil
}

func dynamoItemFromSong(song entity.Song) (map[string]*dynamodb.AttributeValue, error) {
	if song.ID == "" {
		return nil, cerr.Error("Cannot write a song without an ID")
	}

	item := map[string]*dynamodb.AttributeValue{}
	item[idField] = stringAttribute(song.ID)
	item["source_url"] = stringAttribute(song.SourceURL)
	item["status"] = stringAttribute(string(song.Status))
	item["status_message"] = stringAttribute(song.StatusMessage)
	item["status_debug_log"] = stringAttribute(song.StatusDebugLog)
	item["progress"] = numberAttribute(song.Progress)

	stemURLs := dynamodb.AttributeValue{}
	stemURLs.SetM(stemURLsAttribute(song.StemURLs))
	item["stem_urls"] = &stemURLs

	return item, nil
}

func stringAttribute(val string) *dynamodb.AttributeValue {
	attributeValue := dynamodb.AttributeValue{}
	attributeValue.SetS(val)
	return &attributeValue
}

func numberAttribute(val int) *dynamodb.AttributeValue {
	attributeValue := dynamodb.AttributeValue{}
	attributeValue.SetN(strconv.Itoa(val))
	return &attributeValue
}

func stemURLsAttribute(stemURLs map[string]map[string]string) map[string]*dynamodb.AttributeValue {
	output := map[string]*dynamodb.AttributeValue{}

	for stemName, formatURLs := range stemURLs {
		formats := dynamodb.AttributeValue{}
		formats.SetM(convertToAttributeValues(formatURLs))
		output[stemName] = &formats
	}

	return output
}

func convertToAttributeValues(m map[string]string) map[string]*dynamodb.AttributeValue {
	output := map[string]*dynamodb.AttributeValue{}

	for k, v := range m {
		attributeValue := dynamodb.AttributeValue{}
		attributeValue.SetS(v)
		output[k] = &attributeValue
	}

	return output
}

func getStringField(object map[string]*dynamodb.AttributeValue, fieldKey string) (string, error) {
	stringVal, ok := object[fieldKey]
	if !ok {
		return "", cerr.Field("field_key", fieldKey).Error("Missing string key on object")
	}

	if stringVal.S == nil {
		return "", cerr.Field("field_key", fieldKey).Error("String value is empty")
	}

	return *stringVal.S, nil
}

func getOptionalStringField(object map[string]*dynamodb.AttributeValue, fieldKey string) string {
	stringVal, ok := object[fieldKey]
	if !ok || stringVal.S == nil {
		return ""
	}

	return *stringVal.S
}

func getOptionalNumberField(object map[string]*dynamodb.AttributeValue, fieldKey string) int {
	numberVal, ok := object[fieldKey]
	if !ok || numberVal.N == nil {
		return 0
	}

	parsed, err := strconv.Atoi(*numberVal.N)
	if err != nil {
		return 0
	}

	return parsed
}

func getStemURLsField(object map[string]*dynamodb.AttributeValue, fieldKey string) map[string]map[string]string {
	mapVal, ok := object[fieldKey]
	if !ok || mapVal.M == nil {
		return nil
	}

	output := map[string]map[string]string{}
	for stemName, formats := range mapVal.M {
		if formats.M == nil {
			continue
		}

		formatURLs := map[string]string{}
		for format, url := range formats.M {
			if url.S == nil {
				continue
			}
			formatURLs[format] = *url.S
		}

		output[stemName] = formatURLs
	}

	if len(output) == 0 {
		return nil
	}

	return output
}
