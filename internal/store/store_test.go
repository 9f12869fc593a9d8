package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pdf-qa-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s DocumentStore) {
	t.Helper()
	ctx := context.Background()

	ids, err := s.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = s.GetDocument(ctx, 1)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	first, err := s.CreateDocument(ctx, "a.pdf", "alpha text")
	require.NoError(t, err)
	second, err := s.CreateDocument(ctx, "b.pdf", "beta text")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Less(t, first.ID, second.ID)

	got, err := s.GetDocument(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "beta text", got.Text)
	assert.Equal(t, "b.pdf", got.Title)

	ids, err = s.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids)

	_, err = s.AddQuestionAnswer(ctx, second.ID+100, "q", "a")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = s.AddQuestionAnswer(ctx, first.ID, "Who?", "Alice")
	require.NoError(t, err)
	_, err = s.AddQuestionAnswer(ctx, first.ID, "Where?", "Paris")
	require.NoError(t, err)

	history, err := s.QuestionAnswers(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Who?", history[0].Question)
	assert.Equal(t, "Paris", history[1].Answer)

	history, err = s.QuestionAnswers(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.Len(t, docs[0].History, 2)
	assert.Empty(t, docs[1].History)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_IDsStartAtOne(t *testing.T) {
	s := NewMemoryStore()
	doc, err := s.CreateDocument(context.Background(), "", "text")
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.ID)
}

func TestMemoryStore_ConcurrentCreateUniqueIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := s.CreateDocument(ctx, "", "text")
			if err == nil {
				ids <- doc.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestMemoryStore_ReturnedHistoryIsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	doc, _ := s.CreateDocument(ctx, "", "text")
	_, _ = s.AddQuestionAnswer(ctx, doc.ID, "q", "a")

	history, err := s.QuestionAnswers(ctx, doc.ID)
	require.NoError(t, err)
	history[0].Answer = "mutated"

	again, _ := s.QuestionAnswers(ctx, doc.ID)
	assert.Equal(t, "a", again[0].Answer)
}

func TestSQLStore_SQLite(t *testing.T) {
	s, err := NewSQLStore(config.StoreSQLite, filepath.Join(t.TempDir(), "pdfqa.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfqa.db")
	ctx := context.Background()

	s, err := NewSQLStore(config.StoreSQLite, path)
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, "keep.pdf", "persisted text")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLStore(config.StoreSQLite, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted text", got.Text)
}

func TestNewSQLStore_UnknownDriver(t *testing.T) {
	_, err := NewSQLStore("oracle", "dsn")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)", sqliteDSN("a.db"))
	assert.Equal(t, "a.db?mode=rwc&_pragma=foreign_keys(1)", sqliteDSN("a.db?mode=rwc"))
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)", sqliteDSN("a.db?_pragma=busy_timeout(5000)"))
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), &config.Config{StoreDriver: config.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "cassandra"})
	assert.Error(t, err)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	dbName := "pdfqa_test_" + time.Now().Format("20060102150405")
	db := client.Database(dbName)
	defer db.Drop(context.Background())

	require.NoError(t, config.CreateIndexes(ctx, db))

	s := NewMongoStore(client, dbName, false)
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}
