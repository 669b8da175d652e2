package repositories

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/anonto42/buddyfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const testProject = "test-project"

// fakeFirestore serves document reads and query listens from an in-memory map of
// documents keyed by their full resource name.
type fakeFirestore struct {
	firestorepb.UnimplementedFirestoreServer

	mu   sync.Mutex
	docs map[string]*firestorepb.Document
}

func documentName(path string) string {
	return "projects/" + testProject + "/databases/(default)/documents/" + path
}

func (f *fakeFirestore) put(path string, fields map[string]*firestorepb.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := timestamppb.Now()
	f.docs[documentName(path)] = &firestorepb.Document{
		Name:       documentName(path),
		Fields:     fields,
		CreateTime: now,
		UpdateTime: now,
	}
}

func (f *fakeFirestore) BatchGetDocuments(req *firestorepb.BatchGetDocumentsRequest, stream firestorepb.Firestore_BatchGetDocumentsServer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range req.GetDocuments() {
		resp := &firestorepb.BatchGetDocumentsResponse{ReadTime: timestamppb.Now()}
		if doc, ok := f.docs[name]; ok {
			resp.Result = &firestorepb.BatchGetDocumentsResponse_Found{Found: doc}
		} else {
			resp.Result = &firestorepb.BatchGetDocumentsResponse_Missing{Missing: name}
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
	return nil
}

// Listen answers the first target with every document directly under the queried
// collection, marks the target current, and then holds the stream open.
func (f *fakeFirestore) Listen(stream firestorepb.Firestore_ListenServer) error {
	req, err := stream.Recv()
	if err != nil {
		return err
	}
	target := req.GetAddTarget()
	if target == nil || target.GetQuery() == nil {
		return status.Error(codes.InvalidArgument, "expected a query target")
	}
	tid := target.GetTargetId()
	prefix := target.GetQuery().GetParent() + "/" + target.GetQuery().GetStructuredQuery().GetFrom()[0].GetCollectionId() + "/"

	responses := []*firestorepb.ListenResponse{targetChange(firestorepb.TargetChange_ADD, tid)}
	f.mu.Lock()
	for name, doc := range f.docs {
		id, ok := strings.CutPrefix(name, prefix)
		if !ok || strings.Contains(id, "/") {
			continue
		}
		responses = append(responses, &firestorepb.ListenResponse{
			ResponseType: &firestorepb.ListenResponse_DocumentChange{
				DocumentChange: &firestorepb.DocumentChange{Document: doc, TargetIds: []int32{tid}},
			},
		})
	}
	f.mu.Unlock()
	responses = append(responses,
		targetChange(firestorepb.TargetChange_CURRENT, tid),
		&firestorepb.ListenResponse{ResponseType: &firestorepb.ListenResponse_TargetChange{
			TargetChange: &firestorepb.TargetChange{
				TargetChangeType: firestorepb.TargetChange_NO_CHANGE,
				ReadTime:         timestamppb.Now(),
			},
		}},
	)
	for _, resp := range responses {
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
	for {
		if _, err := stream.Recv(); err != nil {
			return nil
		}
	}
}

func targetChange(kind firestorepb.TargetChange_TargetChangeType, tid int32) *firestorepb.ListenResponse {
	return &firestorepb.ListenResponse{ResponseType: &firestorepb.ListenResponse_TargetChange{
		TargetChange: &firestorepb.TargetChange{TargetChangeType: kind, TargetIds: []int32{tid}},
	}}
}

func newFakeFirestore(t *testing.T) (*firestore.Client, *fakeFirestore) {
	t.Helper()
	t.Setenv("FIRESTORE_EMULATOR_HOST", "")

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	fake := &fakeFirestore{docs: make(map[string]*firestorepb.Document)}
	firestorepb.RegisterFirestoreServer(srv, fake)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client, err := firestore.NewClient(context.Background(), testProject, option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		_ = conn.Close()
		srv.Stop()
	})
	return client, fake
}

func str(s string) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_StringValue{StringValue: s}}
}

func null() *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_NullValue{NullValue: structpb.NullValue_NULL_VALUE}}
}

func integer(n int64) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_IntegerValue{IntegerValue: n}}
}

func timestamp(t time.Time) *firestorepb.Value {
	return &firestorepb.Value{ValueType: &firestorepb.Value_TimestampValue{TimestampValue: timestamppb.New(t)}}
}

func array(items ...string) *firestorepb.Value {
	values := make([]*firestorepb.Value, len(items))
	for i, s := range items {
		values[i] = str(s)
	}
	return &firestorepb.Value{ValueType: &firestorepb.Value_ArrayValue{ArrayValue: &firestorepb.ArrayValue{Values: values}}}
}

// webPost mirrors a post written by the web client: nullable author photo and
// image, server timestamp for createdAt.
func webPost(author, content string, createdAt time.Time) map[string]*firestorepb.Value {
	return map[string]*firestorepb.Value{
		"authorId":      str(author),
		"authorName":    str("Ada Lovelace"),
		"authorPhoto":   null(),
		"content":       str(content),
		"imageURL":      null(),
		"visibility":    str("public"),
		"likes":         array(),
		"commentsCount": integer(0),
		"createdAt":     timestamp(createdAt),
	}
}

func TestFirestoreUserRepository_DecodesISOCreatedAt(t *testing.T) {
	client, fake := newFakeFirestore(t)
	users := NewFirestoreUserRepository(client)
	ctx := context.Background()

	fake.put("users/u1", map[string]*firestorepb.Value{
		"uid":       str("u1"),
		"firstName": str("Ada"),
		"lastName":  str("Lovelace"),
		"email":     str("ada@example.com"),
		"photoURL":  null(),
		"createdAt": str("2024-05-01T10:20:30.123Z"),
	})

	user, err := users.GetUserByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.FullName())
	assert.Nil(t, user.PhotoURL)
	assert.True(t, user.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 20, 30, 123e6, time.UTC)))
}

func TestFirestoreUserRepository_DecodesTimestampCreatedAt(t *testing.T) {
	client, fake := newFakeFirestore(t)
	users := NewFirestoreUserRepository(client)
	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

	fake.put("users/u2", map[string]*firestorepb.Value{
		"firstName": str("Grace"),
		"lastName":  str("Hopper"),
		"email":     str("grace@example.com"),
		"photoURL":  str("https://example.com/g.png"),
		"createdAt": timestamp(created),
	})

	user, err := users.GetUserByUID(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", user.UID)
	require.NotNil(t, user.PhotoURL)
	assert.Equal(t, "https://example.com/g.png", *user.PhotoURL)
	assert.True(t, user.CreatedAt.Equal(created))
}

func TestFirestoreUserRepository_NotFound(t *testing.T) {
	client, _ := newFakeFirestore(t)

	_, err := NewFirestoreUserRepository(client).GetUserByUID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirestorePostRepository_GetWebClientPost(t *testing.T) {
	client, fake := newFakeFirestore(t)
	posts := NewFirestorePostRepository(client)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	fields := webPost("u1", "hello", created)
	fields["likes"] = array("u2", "u3")
	fields["commentsCount"] = integer(4)
	fake.put("posts/p1", fields)

	post, err := posts.GetPostByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Nil(t, post.AuthorPhoto)
	assert.Empty(t, post.ImageURL)
	assert.Equal(t, models.VisibilityPublic, post.Visibility)
	assert.Equal(t, 2, post.NumLikes())
	assert.Equal(t, int64(4), post.CommentsCount)
	assert.True(t, post.CreatedAt.Equal(created))

	_, err = posts.GetPostByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirestorePostRepository_DefaultsMissingFields(t *testing.T) {
	client, fake := newFakeFirestore(t)

	fake.put("posts/p1", map[string]*firestorepb.Value{
		"authorId":  str("u1"),
		"content":   str("legacy"),
		"createdAt": timestamp(time.Now()),
	})

	post, err := NewFirestorePostRepository(client).GetPostByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, post.Visibility)
	assert.Equal(t, []string{}, post.Likes)
}

func TestFirestoreCommentRepository_GetNullParent(t *testing.T) {
	client, fake := newFakeFirestore(t)
	comments := NewFirestoreCommentRepository(client)

	fake.put("posts/p1/comments/c1", map[string]*firestorepb.Value{
		"text":        str("first"),
		"authorId":    str("u1"),
		"authorName":  null(),
		"authorPhoto": null(),
		"parentId":    null(),
		"createdAt":   timestamp(time.Now()),
		"likes":       array(),
	})
	fake.put("posts/p1/comments/c2", map[string]*firestorepb.Value{
		"text":      str("reply"),
		"authorId":  str("u2"),
		"parentId":  str("c1"),
		"createdAt": timestamp(time.Now()),
	})

	root, err := comments.GetComment(context.Background(), "p1", "c1")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "p1", root.PostID)
	assert.Nil(t, root.AuthorPhoto)
	assert.Empty(t, root.AuthorName)

	reply, err := comments.GetComment(context.Background(), "p1", "c2")
	require.NoError(t, err)
	assert.Equal(t, "c1", reply.RootID())
	assert.Equal(t, []string{}, reply.Likes)
}

func TestFirestorePostRepository_WatchOrdersNewestFirst(t *testing.T) {
	client, fake := newFakeFirestore(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	fake.put("posts/old", webPost("u1", "older", base))
	fake.put("posts/new", webPost("u2", "newer", base.Add(time.Minute)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := NewFirestorePostRepository(client).WatchPosts(ctx)
	defer sub.Cancel()

	items, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "new", items[0].ID)
	assert.Equal(t, "old", items[1].ID)
	assert.Nil(t, items[0].AuthorPhoto)
}

func TestFirestoreCommentRepository_WatchOrdersOldestFirst(t *testing.T) {
	client, fake := newFakeFirestore(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	fake.put("posts/p1/comments/b", map[string]*firestorepb.Value{
		"text": str("second"), "parentId": null(), "createdAt": timestamp(base.Add(time.Second)),
	})
	fake.put("posts/p1/comments/a", map[string]*firestorepb.Value{
		"text": str("first"), "parentId": null(), "createdAt": timestamp(base),
	})
	fake.put("posts/p2/comments/x", map[string]*firestorepb.Value{
		"text": str("elsewhere"), "createdAt": timestamp(base),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub := NewFirestoreCommentRepository(client).WatchComments(ctx, "p1")
	defer sub.Cancel()

	items, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, "p1", items[0].PostID)
}

func TestParseCreatedAt(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)
	tests := []struct {
		name    string
		in      interface{}
		want    time.Time
		wantErr bool
	}{
		{name: "timestamp", in: ts, want: ts},
		{name: "iso string", in: "2024-05-01T10:20:30.000Z", want: ts},
		{name: "offset string", in: "2024-05-01T12:20:30+02:00", want: ts},
		{name: "missing", in: nil},
		{name: "empty string", in: ""},
		{name: "garbage", in: "yesterday", wantErr: true},
		{name: "number", in: int64(5), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCreatedAt(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
		})
	}
}
