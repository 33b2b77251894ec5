// Package mdb stores the starboard tables in MongoDB collections.
package mdb

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/Seklfreak/starboard/models"
	"github.com/Seklfreak/starboard/storage"
	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const countersCollection models.MongoDbCollection = "starboard_counters"

type Store struct {
	session  *mgo.Session
	database string
}

// Dial connects to url, appending ?ssl=true switches to TLS
func Dial(url string, database string, log *logrus.Entry) (*Store, error) {
	host := url
	if i := strings.LastIndex(url, "@"); i >= 0 {
		host = url[i+1:]
	}
	log.Info("connecting to " + host)

	newUrl := strings.TrimSuffix(url, "?ssl=true")
	newUrl = strings.Replace(newUrl, "ssl=true&", "", -1)

	dialInfo, err := mgo.ParseURL(newUrl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing mongodb url")
	}
	dialInfo.Timeout = 10 * time.Second

	// setup TLS if we use SSL
	if newUrl != url {
		tlsConfig := &tls.Config{}
		dialInfo.DialServer = func(addr *mgo.ServerAddr) (net.Conn, error) {
			return tls.Dial("tcp", addr.String(), tlsConfig)
		}
	}

	session, err := mgo.DialWithInfo(dialInfo)
	if err != nil {
		return nil, errors.Wrap(err, "dialing mongodb")
	}
	session.SetMode(mgo.Primary, false)
	session.SetSafe(&mgo.Safe{})

	if database == "" {
		database = dialInfo.Database
	}
	store := &Store{session: session, database: database}

	if err = store.ensureIndexes(); err != nil {
		session.Close()
		return nil, err
	}

	log.Info("connected!")
	return store, nil
}

func (s *Store) ensureIndexes() error {
	session := s.session.Copy()
	defer session.Close()
	db := session.DB(s.database)

	indexes := []struct {
		collection models.MongoDbCollection
		index      mgo.Index
	}{
		{models.StarboardVotesTable, mgo.Index{Key: []string{"message_id", "voter_id"}, Unique: true}},
		{models.StarboardVotesTable, mgo.Index{Key: []string{"message_id", "created_at"}}},
		{models.StarboardMirrorsTable, mgo.Index{Key: []string{"original_message_id"}, Unique: true}},
		{models.StarboardMirrorsTable, mgo.Index{Key: []string{"guild_id", "-star_count"}}},
		{models.StarboardConfigTable, mgo.Index{Key: []string{"guild_id"}, Unique: true}},
	}
	for _, item := range indexes {
		if err := db.C(item.collection.String()).EnsureIndex(item.index); err != nil {
			return errors.Wrapf(err, "ensuring index on %s", item.collection)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.session.Close()
	return nil
}

// collection returns a collection on a copied session, the caller has to
// close the returned session
func (s *Store) collection(name models.MongoDbCollection) (*mgo.Collection, *mgo.Session) {
	session := s.session.Copy()
	return session.DB(s.database).C(name.String()), session
}

func (s *Store) AddVote(ctx context.Context, messageID, voterID string) (bool, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	err := c.Insert(models.VoteRecord{
		MessageID: messageID,
		VoterID:   voterID,
		CreatedAt: time.Now(),
	})
	if mgo.IsDup(err) {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap(err, "add vote")
	}
	return true, nil
}

func (s *Store) RemoveVote(ctx context.Context, messageID, voterID string) (bool, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	err := c.Remove(bson.M{"message_id": messageID, "voter_id": voterID})
	if err == mgo.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap(err, "remove vote")
	}
	return true, nil
}

func (s *Store) CountVotes(ctx context.Context, messageID string) (int, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	count, err := c.Find(bson.M{"message_id": messageID}).Count()
	return count, storage.Wrap(err, "count votes")
}

func (s *Store) HasVoted(ctx context.Context, messageID, voterID string) (bool, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	count, err := c.Find(bson.M{"message_id": messageID, "voter_id": voterID}).Limit(1).Count()
	return count > 0, storage.Wrap(err, "has voted")
}

func (s *Store) ClearVotes(ctx context.Context, messageID string) (int, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	info, err := c.RemoveAll(bson.M{"message_id": messageID})
	if err != nil {
		return 0, storage.Wrap(err, "clear votes")
	}
	return info.Removed, nil
}

func (s *Store) Voters(ctx context.Context, messageID string) ([]string, error) {
	c, session := s.collection(models.StarboardVotesTable)
	defer session.Close()

	var entryBucket []models.VoteRecord
	err := c.Find(bson.M{"message_id": messageID}).Sort("created_at").All(&entryBucket)
	if err != nil {
		return nil, storage.Wrap(err, "list voters")
	}

	voters := make([]string, 0, len(entryBucket))
	for _, entry := range entryBucket {
		voters = append(voters, entry.VoterID)
	}
	return voters, nil
}

func (s *Store) GetMirror(ctx context.Context, originalMessageID string) (*models.MirrorRecord, error) {
	c, session := s.collection(models.StarboardMirrorsTable)
	defer session.Close()

	var record models.MirrorRecord
	err := c.Find(bson.M{"original_message_id": originalMessageID}).One(&record)
	if err == mgo.ErrNotFound {
		return nil, storage.Wrap(storage.ErrNotFound, "get mirror")
	}
	if err != nil {
		return nil, storage.Wrap(err, "get mirror")
	}
	return &record, nil
}

func (s *Store) nextMirrorID(session *mgo.Session) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	_, err := session.DB(s.database).C(countersCollection.String()).FindId("mirrors").Apply(mgo.Change{
		Update:    bson.M{"$inc": bson.M{"seq": 1}},
		Upsert:    true,
		ReturnNew: true,
	}, &counter)
	return counter.Seq, err
}

func (s *Store) CreateMirror(ctx context.Context, record *models.MirrorRecord) error {
	c, session := s.collection(models.StarboardMirrorsTable)
	defer session.Close()

	id, err := s.nextMirrorID(session)
	if err != nil {
		return storage.Wrap(err, "create mirror")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.ID = id

	err = c.Insert(record)
	if mgo.IsDup(err) {
		record.ID = 0
		return storage.Wrap(storage.ErrDuplicate, "create mirror")
	}
	return storage.Wrap(err, "create mirror")
}

func (s *Store) UpdateMirrorCount(ctx context.Context, originalMessageID string, count int) error {
	c, session := s.collection(models.StarboardMirrorsTable)
	defer session.Close()

	err := c.Update(
		bson.M{"original_message_id": originalMessageID},
		bson.M{"$set": bson.M{"star_count": count}},
	)
	if err == mgo.ErrNotFound {
		return storage.Wrap(storage.ErrNotFound, "update mirror count")
	}
	return storage.Wrap(err, "update mirror count")
}

func (s *Store) DeleteMirror(ctx context.Context, originalMessageID string) (bool, error) {
	c, session := s.collection(models.StarboardMirrorsTable)
	defer session.Close()

	err := c.Remove(bson.M{"original_message_id": originalMessageID})
	if err == mgo.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, storage.Wrap(err, "delete mirror")
	}
	return true, nil
}

func (s *Store) TopMirrors(ctx context.Context, guildID string, limit int) ([]models.MirrorRecord, error) {
	c, session := s.collection(models.StarboardMirrorsTable)
	defer session.Close()

	query := c.Find(bson.M{"guild_id": guildID}).Sort("-star_count", "seq")
	if limit > 0 {
		query = query.Limit(limit)
	}

	records := make([]models.MirrorRecord, 0)
	err := query.All(&records)
	return records, storage.Wrap(err, "top mirrors")
}

func (s *Store) GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error) {
	c, session := s.collection(models.StarboardConfigTable)
	defer session.Close()

	var config models.StarboardConfig
	err := c.Find(bson.M{"guild_id": guildID}).One(&config)
	if err == mgo.ErrNotFound {
		return nil, storage.Wrap(storage.ErrNotFound, "get config")
	}
	if err != nil {
		return nil, storage.Wrap(err, "get config")
	}
	return &config, nil
}

func (s *Store) SetConfig(ctx context.Context, config models.StarboardConfig) error {
	if err := config.Validate(); err != nil {
		return storage.Wrap(err, "set config")
	}

	c, session := s.collection(models.StarboardConfigTable)
	defer session.Close()

	_, err := c.Upsert(bson.M{"guild_id": config.GuildID}, config)
	return storage.Wrap(err, "set config")
}
