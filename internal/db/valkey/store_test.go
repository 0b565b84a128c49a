package valkey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/thepool/internal/db"
	"github.com/kailas-cloud/thepool/internal/domain/search/filter"
)

// --- client.go tests ---

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	s := NewStoreForTest(c)
	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timeout waiting for database") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

// --- keys.go tests ---

func TestDel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "pool:profile:p1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Del(context.Background(), "pool:profile:p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExists(t *testing.T) {
	for _, tc := range []struct {
		reply int64
		want  bool
	}{{1, true}, {0, false}} {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)

		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXISTS", "k")).
			Return(mock.Result(mock.RedisInt64(tc.reply)))

		s := NewStoreForTest(c)
		got, err := s.Exists(context.Background(), "k")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("Exists = %v, want %v", got, tc.want)
		}
	}
}

func TestScan_MultiPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "pool:profile:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("7"),
				mock.RedisArray(mock.RedisString("pool:profile:a")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "7", "MATCH", "pool:profile:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("0"),
				mock.RedisArray(mock.RedisString("pool:profile:b")),
			))),
	)

	s := NewStoreForTest(c)
	keys, err := s.Scan(context.Background(), "pool:profile:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "pool:profile:a" || keys[1] != "pool:profile:b" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

// --- json.go tests ---

func TestJSONSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.SET", "pool:profile:p1", "$", `{"id":"p1"}`)).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.JSONSet(context.Background(), "pool:profile:p1", "$", []byte(`{"id":"p1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "JSON.SET" })).
		Return(mock.Result(mock.RedisError("ERR new objects must be created at the root")))

	s := NewStoreForTest(c)
	err := s.JSONSet(context.Background(), "k", "$.x", []byte(`1`))
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpJSONSet {
		t.Errorf("expected db.Error with op JSON.SET, got %v", err)
	}
}

func TestJSONGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "k", "$")).
		Return(mock.Result(mock.RedisBlobString(`[{"id":"p1"}]`)))

	s := NewStoreForTest(c)
	data, err := s.JSONGet(context.Background(), "k", "$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[{"id":"p1"}]` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestJSONGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("JSON.GET", "k", "$")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.JSONGet(context.Background(), "k", "$")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONGetMulti_SkipsMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisBlobString(`[{"id":"a"}]`)),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreForTest(c)
	docs, err := s.JSONGetMulti(context.Background(), []string{"a", "b"}, "$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(docs))
	}
	if string(docs[0]) != `[{"id":"a"}]` || docs[1] != nil {
		t.Errorf("unexpected docs: %q", docs)
	}
}

func TestJSONGetMulti_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(errors.New("broken pipe"))})

	s := NewStoreForTest(c)
	if _, err := s.JSONGetMulti(context.Background(), []string{"a"}, "$"); err == nil {
		t.Fatal("expected error")
	}
}

func TestJSONGetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	docs, err := s.JSONGetMulti(context.Background(), nil, "$")
	if err != nil || docs != nil {
		t.Fatalf("expected nil, nil; got %v, %v", docs, err)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "counter", "5")).
		Return(mock.Result(mock.RedisInt64(5)))

	s := NewStoreForTest(c)
	if err := s.IncrBy(context.Background(), "counter", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXPIRE", "mykey", "300", "NX")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 5*time.Minute, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func profileIndex() *db.IndexDefinition {
	return db.NewIndex("pool:profile:idx").
		OnJSON().
		Prefix("pool:profile:").
		Tag("$.id").As("id").
		VectorHNSW("$.embedding", 4, db.DistanceCosine, 16, 200).As("embedding").
		MustBuild()
}

func TestBuildCreateArgs_ProfileIndex(t *testing.T) {
	args, err := buildCreateArgs(profileIndex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "pool:profile:idx ON JSON PREFIX 1 pool:profile: SCHEMA " +
		"$.id AS id TAG " +
		"$.embedding AS embedding VECTOR HNSW 10 TYPE FLOAT32 DIM 4 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateArgs_FlatDefaults(t *testing.T) {
	def := &db.IndexDefinition{
		Name:   "idx",
		Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector, VectorDim: 2}},
	}
	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "idx ON HASH SCHEMA v VECTOR FLAT 6 TYPE FLOAT32 DIM 2 DISTANCE_METRIC COSINE"
	if got := strings.Join(args, " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestBuildCreateArgs_Invalid(t *testing.T) {
	if _, err := buildCreateArgs(&db.IndexDefinition{Name: "idx"}); err == nil {
		t.Fatal("expected error for index without fields")
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), profileIndex())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "pool:profile:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	err := s.DropIndex(context.Background(), "pool:profile:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		want  bool
	}{
		{"exists", mock.Result(mock.RedisArray(mock.RedisString("index_name"))), true},
		{"redis unknown", mock.Result(mock.RedisError("Unknown Index name")), false},
		{"valkey not found", mock.Result(mock.RedisError("Index with name 'x' not found")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "pool:profile:idx")).
				Return(tt.reply)

			s := NewStoreForTest(c)
			got, err := s.IndexExists(context.Background(), "pool:profile:idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IndexExists = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			sent = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("pool:profile:a"),
			mock.RedisArray(
				mock.RedisString("__embedding_score"),
				mock.RedisString("0.2"),
				mock.RedisString("id"),
				mock.RedisString("a"),
			),
			mock.RedisString("pool:profile:b"),
			mock.RedisArray(
				mock.RedisString("__embedding_score"),
				mock.RedisString("1.4"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "pool:profile:idx",
		Vector:       []float32{0.1, 0.2},
		K:            20,
		Filters:      filter.ExcludeID("me-1"),
		ReturnFields: []string{"id"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(sent, " ")
	for _, want := range []string{
		`(-@id:{me\-1})=>[KNN 20 @embedding $BLOB]`,
		"RETURN 2 __embedding_score id",
		"LIMIT 0 20",
		"DIALECT 2",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("command missing %q:\n%s", want, joined)
		}
	}

	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if e := result.Entries[0]; e.Score < 0.79 || e.Score > 0.81 || e.Fields["id"] != "a" {
		t.Errorf("entry[0] = %+v, want score ~0.8 id a", e)
	}
	if _, ok := result.Entries[0].Fields["__embedding_score"]; ok {
		t.Error("score field should be removed from Fields")
	}
	if result.Entries[1].Score != 0 {
		t.Errorf("distance above 1 should clamp to 0, got %f", result.Entries[1].Score)
	}
}

func TestSearchKNN_NoFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "*=>[KNN 5 @vec $BLOB]"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "idx",
		VectorField: "vec",
		Vector:      []float32{1},
		K:           5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 1})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 10}); err == nil {
		t.Error("expected error for empty index name")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{IndexName: "idx", Vector: []float32{0.1}}); err == nil {
		t.Error("expected error for k=0")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		d, want float64
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.8, 0},
		{-0.1, 1},
	}
	for _, tt := range tests {
		if got := similarity(tt.d); got != tt.want {
			t.Errorf("similarity(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0})
	// 1.0 as little-endian IEEE 754
	if b != "\x00\x00\x80\x3f" {
		t.Errorf("unexpected encoding: %q", b)
	}
}

func TestBuildFilter(t *testing.T) {
	lang, _ := filter.NewMatch("lang", "go")
	me, _ := filter.NewMatch("id", "me")
	both, _ := filter.NewExpression([]filter.Condition{lang}, []filter.Condition{me})

	tests := []struct {
		name string
		expr filter.Expression
		want string
	}{
		{"empty", filter.Expression{}, ""},
		{"exclude id", filter.ExcludeID("a.b"), `-@id:{a\.b}`},
		{"must and must_not", both, `@lang:{go} -@id:{me}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildFilter(tt.expr); got != tt.want {
				t.Errorf("buildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}
