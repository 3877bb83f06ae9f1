package store

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"stemsep/src/application/songs/entity"
	"stemsep/src/lib/cerr"
	"stemsep/src/lib/env"
)

var (
	tableName = "Songs"
	idField   = "song_id"
)

var _ entity.SongStore = DynamoDBSongStore{}

func NewDynamoDBSongStore(environment env.Environment) DynamoDBSongStore {
	dbSession := session.Must(session.NewSession())

	config := aws.NewConfig().WithRegion("us-east-2").WithCredentials(credentials.NewEnvCredentials())

	if environment == env.Development {
		config = config.WithEndpoint("http://localhost:8000")
	}

	client := dynamodb.New(dbSession, config)
	return DynamoDBSongStore{
		dynamoDBClient: client,
	}
}

type DynamoDBSongStore struct {
	dynamoDBClient *dynamodb.DynamoDB
}

func (d DynamoDBSongStore) GetSong(_ context.Context, songID string) (entity.Song, error) {
	consistentRead := true
	key := makeKey(songID)

	output, err := d.dynamoDBClient.GetItem(&dynamodb.GetItemInput{
		ConsistentRead: &consistentRead,
		Key:            key,
		TableName:      &tableName,
	})

	if err != nil {
		return entity.Song{}, cerr.Field("song_id", songID).
			Wrap(err).Error("Failed to get song from DynamoDB")
	}

	if output.Item == nil {
		return entity.Song{}, cerr.Field("song_id", songID).Error("No song found for ID")
	}

	song, err := songFromDynamoItem(output.Item)
	if err != nil {
		return entity.Song{}, cerr.Field("song_id", songID).
			Wrap(err).Error("Failed to extract song from output item")
	}

	return song, nil
}

func (d DynamoDBSongStore) SetSong(_ context.Context, song entity.Song) error {
	item, err := dynamoItemFromSong(song)
	if err != nil {
		return cerr.Field("song_id", song.ID).
			Wrap(err).Error("Failed to convert song to a DynamoDB item")
	}

	_, err = d.dynamoDBClient.PutItem(&dynamodb.PutItemInput{
		Item:      item,
		TableName: &tableName,
	})
	if err != nil {
		return cerr.Field("song_id", song.ID).
			Wrap(err).Error("Failed to write song to DynamoDB")
	}

	return nil
}

func (d DynamoDBSongStore) UpdateSong(ctx context.Context, songID string, updater func(entity.Song) (entity.Song, error)) error {
	song, err := d.GetSong(ctx, songID)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to get song for update")
	}

	updated, err := updater(song)
	if err != nil {
		return cerr.Wrap(err).Error("Updater rejected the song")
	}

	if err := d.SetSong(ctx, updated); err != nil {
		return cerr.Wrap(err).Error("Failed to write the updated song")
	}

	return nil
}

func makeKey(key string) map[string]*dynamodb.AttributeValue {
	attributeValue := dynamodb.AttributeValue{}
	attributeValue.SetS(key)
	return map[string]*dynamodb.AttributeValue{
		idField: &attributeValue,
	}
}
