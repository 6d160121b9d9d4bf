package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	var auth AuthResponse
	status := env.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"}, &auth)
	req.Equal(http.StatusCreated, status)
	req.NotEmpty(auth.Token)

	status = env.do(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: "alice", Password: "password123"}, nil)
	req.Equal(http.StatusConflict, status)

	status = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "password123"}, &auth)
	req.Equal(http.StatusOK, status)

	status = env.do(t, http.MethodPost, "/api/login", "", LoginRequest{Username: "alice", Password: "wrong-password"}, nil)
	req.Equal(http.StatusUnauthorized, status)
}

func TestChatsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	var body ErrorResponse
	status := env.do(t, http.MethodGet, "/api/chats", "", nil, &body)
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotEmpty(t, body.Error)

	status = env.do(t, http.MethodGet, "/api/chats", "garbage", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateChatStatusCodes(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	alice, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")

	var created proto.ChatSummary
	status := env.do(t, http.MethodPost, "/api/chats", aliceToken, proto.CreateChatRequest{RecipientID: bob}, &created)
	req.Equal(http.StatusCreated, status)
	req.Equal("bob", created.OtherUser.Username)

	var found proto.ChatSummary
	status = env.do(t, http.MethodPost, "/api/chats", bobToken, proto.CreateChatRequest{RecipientID: alice}, &found)
	req.Equal(http.StatusOK, status)
	req.Equal(created.ID, found.ID)
	req.Equal("alice", found.OtherUser.Username)

	var body ErrorResponse
	status = env.do(t, http.MethodPost, "/api/chats", aliceToken, proto.CreateChatRequest{RecipientID: alice}, &body)
	req.Equal(http.StatusBadRequest, status)
	req.Equal(messaging.CodeSelfChat, body.Code)

	status = env.do(t, http.MethodPost, "/api/chats", aliceToken, proto.CreateChatRequest{RecipientID: "nope"}, &body)
	req.Equal(http.StatusBadRequest, status)
	req.Equal(messaging.CodeInvalidID, body.Code)

	status = env.do(t, http.MethodPost, "/api/chats", aliceToken, proto.CreateChatRequest{RecipientID: uuid.NewString()}, &body)
	req.Equal(http.StatusNotFound, status)
	req.Equal(messaging.CodeUserNotFound, body.Code)

	status = env.do(t, http.MethodPost, "/api/chats", aliceToken, map[string]string{}, &body)
	req.Equal(http.StatusBadRequest, status)
}

func TestSendAndListMessages(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	bob, bobToken := env.user(t, "bob")
	_, malloryToken := env.user(t, "mallory")

	var chat proto.ChatSummary
	env.do(t, http.MethodPost, "/api/chats", aliceToken, proto.CreateChatRequest{RecipientID: bob}, &chat)

	var msg proto.Message
	status := env.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", aliceToken,
		proto.SendMessageRequest{Content: "hello", TempID: "tmp-1"}, &msg)
	req.Equal(http.StatusCreated, status)
	req.Equal("tmp-1", msg.TempID)
	req.Equal(chat.ID, msg.ChatID)

	var msgs []proto.Message
	status = env.do(t, http.MethodGet, "/api/chats/"+chat.ID+"/messages", bobToken, nil, &msgs)
	req.Equal(http.StatusOK, status)
	req.Len(msgs, 1)
	req.Equal("hello", msgs[0].Content)

	var chats []proto.ChatSummary
	status = env.do(t, http.MethodGet, "/api/chats", bobToken, nil, &chats)
	req.Equal(http.StatusOK, status)
	req.Len(chats, 1)
	req.Equal("hello", chats[0].LastMessage)
	req.Equal(msg.ID, chats[0].LastMessageID)

	var body ErrorResponse
	status = env.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", malloryToken,
		proto.SendMessageRequest{Content: "intrude"}, &body)
	req.Equal(http.StatusForbidden, status)
	req.Equal(messaging.CodeNotParticipant, body.Code)

	status = env.do(t, http.MethodGet, "/api/chats/"+chat.ID, malloryToken, nil, &body)
	req.Equal(http.StatusForbidden, status)

	status = env.do(t, http.MethodGet, "/api/chats/"+chat.ID+"/messages", malloryToken, nil, &body)
	req.Equal(http.StatusForbidden, status)

	status = env.do(t, http.MethodGet, "/api/chats/"+uuid.NewString(), aliceToken, nil, &body)
	req.Equal(http.StatusNotFound, status)
	req.Equal(messaging.CodeChatNotFound, body.Code)

	status = env.do(t, http.MethodGet, "/api/chats/"+chat.ID+"/messages?limit=abc", aliceToken, nil, &body)
	req.Equal(http.StatusBadRequest, status)
}

func TestSendMessageRecoveryOverHTTP(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	bob, _ := env.user(t, "bob")

	stale := uuid.NewString()

	var body ErrorResponse
	status := env.do(t, http.MethodPost, "/api/chats/"+stale+"/messages", aliceToken,
		proto.SendMessageRequest{Content: "hi"}, &body)
	req.Equal(http.StatusNotFound, status)
	req.Equal(messaging.CodeChatNotFoundNoRecipient, body.Code)

	var msg proto.Message
	status = env.do(t, http.MethodPost, "/api/chats/"+stale+"/messages", aliceToken,
		proto.SendMessageRequest{Content: "hi", RecipientID: bob}, &msg)
	req.Equal(http.StatusCreated, status)
	req.True(msg.ChatCreated)
	req.Equal(stale, msg.OriginalChatID)

	status = env.do(t, http.MethodPost, "/api/chats/"+uuid.NewString()+"/messages", aliceToken,
		proto.SendMessageRequest{Content: "again", RecipientID: bob}, &msg)
	req.Equal(http.StatusCreated, status)
	req.True(msg.ChatRestored)
}

func TestSearchUsers(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	_, aliceToken := env.user(t, "alice")
	env.user(t, "alicia")

	var users []proto.UserRef
	status := env.do(t, http.MethodGet, "/api/users/search?q=ali", aliceToken, nil, &users)
	req.Equal(http.StatusOK, status)
	req.Len(users, 1)
	req.Equal("alicia", users[0].Username)

	status = env.do(t, http.MethodGet, "/api/users/search?q=al", aliceToken, nil, nil)
	req.Equal(http.StatusBadRequest, status)
}
