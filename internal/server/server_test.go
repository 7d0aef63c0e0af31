package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/handler"
	"taskboard/internal/model"
	"taskboard/internal/server"
	"taskboard/internal/session"
	"taskboard/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	tokens *auth.TokenManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, handler.RegisterValidators())

	db := testutil.OpenTestDB(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	router := server.NewRouter(server.Deps{
		DB:          db,
		Tokens:      tokens,
		Revocations: session.NewMemoryStore(),
		Log:         testutil.QuietLogger(),
	})
	return &testAPI{t: t, router: router, db: db, tokens: tokens}
}

// login creates a user and returns a bearer token for them.
func (a *testAPI) login(name string) (*model.User, string) {
	a.t.Helper()
	user := testutil.CreateUser(a.t, a.db, name)
	token, err := a.tokens.GenerateToken(user.ID, user.Email)
	require.NoError(a.t, err)
	return user, token
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	a.router.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func (a *testAPI) createBoard(token, title string) handler.BoardResponse {
	a.t.Helper()
	resp := a.do("POST", "/boards", token, gin.H{"title": title})
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[handler.BoardResponse](a.t, resp)
}

func (a *testAPI) createList(token, boardID, title string) handler.ListResponse {
	a.t.Helper()
	resp := a.do("POST", "/lists", token, gin.H{"title": title, "boardId": boardID})
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[handler.ListResponse](a.t, resp)
}

func (a *testAPI) createCard(token, listID, title string) handler.CardResponse {
	a.t.Helper()
	resp := a.do("POST", "/cards", token, gin.H{"title": title, "listId": listID})
	require.Equal(a.t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[handler.CardResponse](a.t, resp)
}

func (a *testAPI) cardTitles(token, listID string) []string {
	a.t.Helper()
	resp := a.do("GET", "/cards?listId="+listID, token, nil)
	require.Equal(a.t, http.StatusOK, resp.Code, resp.Body.String())
	cards := decode[[]handler.CardResponse](a.t, resp)
	titles := make([]string, 0, len(cards))
	for i, c := range cards {
		assert.Equal(a.t, i, c.Position)
		titles = append(titles, c.Title)
	}
	return titles
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do("GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"database":"ok"`)
}

func TestUnauthenticated(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do("GET", "/boards", "", nil)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	reg := api.do("POST", "/auth/register", "", gin.H{"email": "Dana@Example.com", "name": "Dana", "password": "secret1"})
	require.Equal(t, http.StatusCreated, reg.Code, reg.Body.String())

	dup := api.do("POST", "/auth/register", "", gin.H{"email": "dana@example.com", "name": "Dana", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, dup.Code)

	login := api.do("POST", "/auth/login", "", gin.H{"email": "dana@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, login.Code)
	token := decode[handler.AuthResponse](t, login).Token

	me := api.do("GET", "/user", token, nil)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "dana@example.com", decode[handler.UserResponse](t, me).Email)

	require.Equal(t, http.StatusOK, api.do("POST", "/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, api.do("GET", "/user", token, nil).Code)
}

func TestBoardVisibility(t *testing.T) {
	api := newTestAPI(t)
	owner, ownerToken := api.login("Owner")
	_, strangerToken := api.login("Stranger")

	board := api.createBoard(ownerToken, "Roadmap")
	require.Len(t, board.Members, 1, "only the implicit owner view")
	assert.Equal(t, owner.ID.String(), board.Members[0].ID)
	assert.Equal(t, owner.ID.String(), board.Owner.ID)

	ownerBoards := decode[[]handler.BoardResponse](t, api.do("GET", "/boards", ownerToken, nil))
	require.Len(t, ownerBoards, 1)
	assert.Equal(t, board.ID, ownerBoards[0].ID)

	strangerBoards := decode[[]handler.BoardResponse](t, api.do("GET", "/boards", strangerToken, nil))
	assert.Empty(t, strangerBoards)

	list := api.createList(ownerToken, board.ID, "Todo")
	card := api.createCard(ownerToken, list.ID, "Secret")

	for _, path := range []string{"/boards/" + board.ID, "/lists/" + list.ID, "/cards/" + card.ID, "/lists?boardId=" + board.ID, "/cards?listId=" + list.ID} {
		resp := api.do("GET", path, strangerToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
	}
	assert.Equal(t, http.StatusNotFound, api.do("GET", "/boards/not-a-uuid", ownerToken, nil).Code)
}

func TestMembership(t *testing.T) {
	api := newTestAPI(t)
	owner, ownerToken := api.login("Owner")
	member, memberToken := api.login("Member")
	testutil.CreateUser(t, api.db, "Third")

	board := api.createBoard(ownerToken, "Team")
	path := "/boards/" + board.ID + "/members"

	added := api.do("POST", path, ownerToken, gin.H{"email": member.Email})
	require.Equal(t, http.StatusOK, added.Code, added.Body.String())
	withMember := decode[handler.BoardResponse](t, added)
	require.Len(t, withMember.Members, 2)
	assert.Equal(t, owner.ID.String(), withMember.Members[0].ID)
	assert.Equal(t, member.ID.String(), withMember.Members[1].ID)

	dup := api.do("POST", path, ownerToken, gin.H{"userId": member.ID})
	assert.Equal(t, http.StatusBadRequest, dup.Code)
	assert.Contains(t, dup.Body.String(), "User is already a member")
	unchanged := decode[handler.BoardResponse](t, api.do("GET", "/boards/"+board.ID, ownerToken, nil))
	assert.Len(t, unchanged.Members, 2)

	unknown := api.do("POST", path, ownerToken, gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, unknown.Code)

	assert.Equal(t, http.StatusOK, api.do("GET", "/boards/"+board.ID, memberToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do("PUT", "/boards/"+board.ID, memberToken, gin.H{"title": "Mine"}).Code)
	assert.Equal(t, http.StatusForbidden, api.do("DELETE", "/boards/"+board.ID, memberToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do("POST", path, memberToken, gin.H{"email": "third@example.com"}).Code)

	for _, token := range []string{ownerToken, memberToken} {
		resp := api.do("DELETE", path, token, gin.H{"userId": owner.ID})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "Cannot remove board owner")
	}

	removed := api.do("DELETE", path, ownerToken, gin.H{"userId": member.ID})
	require.Equal(t, http.StatusOK, removed.Code)
	assert.Len(t, decode[handler.BoardResponse](t, removed).Members, 1)
	assert.Equal(t, http.StatusNotFound, api.do("GET", "/boards/"+board.ID, memberToken, nil).Code)
}

func TestAssigneesFollowBoardAccess(t *testing.T) {
	api := newTestAPI(t)
	_, ownerToken := api.login("Owner")
	helper, _ := api.login("Helper")

	boardA := api.createBoard(ownerToken, "A")
	boardB := api.createBoard(ownerToken, "B")
	require.Equal(t, http.StatusOK, api.do("POST", "/boards/"+boardA.ID+"/members", ownerToken, gin.H{"userId": helper.ID}).Code)
	listA := api.createList(ownerToken, boardA.ID, "Todo")
	listB := api.createList(ownerToken, boardB.ID, "Todo")

	moved := api.createCard(ownerToken, listA.ID, "moved")
	kept := api.createCard(ownerToken, listA.ID, "kept")
	for _, card := range []handler.CardResponse{moved, kept} {
		resp := api.do("PUT", "/cards/"+card.ID, ownerToken, gin.H{"assignedTo": []string{helper.ID.String()}})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := api.do("PUT", "/cards/move", ownerToken, gin.H{
		"cardId":            moved.ID,
		"sourceListId":      listA.ID,
		"destinationListId": listB.ID,
		"destinationIndex":  0,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Empty(t, decode[handler.CardResponse](t, resp).AssignedTo)

	saved := api.do("PUT", "/cards/"+moved.ID, ownerToken, gin.H{"title": "moved", "assignedTo": []string{}})
	assert.Equal(t, http.StatusOK, saved.Code, saved.Body.String())

	require.Equal(t, http.StatusOK, api.do("DELETE", "/boards/"+boardA.ID+"/members", ownerToken, gin.H{"userId": helper.ID}).Code)
	card := decode[handler.CardResponse](t, api.do("GET", "/cards/"+kept.ID, ownerToken, nil))
	assert.Empty(t, card.AssignedTo)
}

func TestCardPositioning(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.login("Owner")
	board := api.createBoard(token, "Board")
	listA := api.createList(token, board.ID, "A")
	listB := api.createList(token, board.ID, "B")

	var a []handler.CardResponse
	for _, title := range []string{"card0", "card1", "card2", "card3"} {
		a = append(a, api.createCard(token, listA.ID, title))
	}
	b0 := api.createCard(token, listB.ID, "b0")

	resp := api.do("PUT", "/cards/"+a[3].ID, token, gin.H{"position": 1})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"card0", "card3", "card1", "card2"}, api.cardTitles(token, listA.ID))

	resp = api.do("PUT", "/cards/move", token, gin.H{
		"cardId":            a[1].ID,
		"sourceListId":      listA.ID,
		"destinationListId": listB.ID,
		"destinationIndex":  0,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, []string{"card0", "card3", "card2"}, api.cardTitles(token, listA.ID))
	assert.Equal(t, []string{"card1", "b0"}, api.cardTitles(token, listB.ID))

	resp = api.do("PUT", "/cards/"+b0.ID, token, gin.H{"position": 7})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "Position out of range")

	resp = api.do("DELETE", "/cards/"+a[3].ID, token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"card0", "card2"}, api.cardTitles(token, listA.ID))
}

func TestCardUpdateFields(t *testing.T) {
	api := newTestAPI(t)
	owner, token := api.login("Owner")
	stranger := testutil.CreateUser(t, api.db, "Outsider")
	board := api.createBoard(token, "Board")
	list := api.createList(token, board.ID, "Todo")
	card := api.createCard(token, list.ID, "Draft")
	assert.Equal(t, model.PriorityMedium, card.Priority)

	resp := api.do("PUT", "/cards/"+card.ID, token, gin.H{
		"priority":   "urgent",
		"dueDate":    "2026-12-01T10:00:00Z",
		"tags":       []string{"api", "api", "backend"},
		"assignedTo": []string{owner.ID.String()},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	updated := decode[handler.CardResponse](t, resp)
	assert.Equal(t, model.PriorityUrgent, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, []string{"api", "backend"}, updated.Tags)
	require.Len(t, updated.AssignedTo, 1)
	assert.Equal(t, "Draft", updated.Title)

	resp = api.do("PUT", "/cards/"+card.ID, token, gin.H{"dueDate": nil, "assignedTo": nil})
	require.Equal(t, http.StatusOK, resp.Code)
	cleared := decode[handler.CardResponse](t, resp)
	assert.Nil(t, cleared.DueDate)
	assert.Empty(t, cleared.AssignedTo)

	assert.Equal(t, http.StatusBadRequest, api.do("PUT", "/cards/"+card.ID, token, gin.H{"priority": "someday"}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do("PUT", "/cards/"+card.ID, token, gin.H{"title": nil}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do("PUT", "/cards/"+card.ID, token, gin.H{"assignedTo": []string{stranger.ID.String()}}).Code)
	assert.Equal(t, http.StatusBadRequest, api.do("POST", "/cards", token, gin.H{"title": "x", "listId": list.ID, "priority": "someday"}).Code)
}

func TestListReorderAndDelete(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.login("Owner")
	board := api.createBoard(token, "Board")
	todo := api.createList(token, board.ID, "Todo")
	doing := api.createList(token, board.ID, "Doing")
	done := api.createList(token, board.ID, "Done")
	card := api.createCard(token, doing.ID, "in progress")

	bad := api.do("PUT", "/lists/reorder", token, gin.H{"lists": []gin.H{
		{"_id": todo.ID, "boardId": board.ID, "position": 0},
		{"_id": doing.ID, "boardId": board.ID, "position": 0},
	}})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	ok := api.do("PUT", "/lists/reorder", token, gin.H{"lists": []gin.H{
		{"_id": done.ID, "boardId": board.ID, "position": 0},
		{"_id": todo.ID, "boardId": board.ID, "position": 1},
		{"_id": doing.ID, "boardId": board.ID, "position": 2},
	}})
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	require.Equal(t, http.StatusOK, api.do("DELETE", "/lists/"+doing.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do("GET", "/cards/"+card.ID, token, nil).Code)

	lists := decode[[]handler.ListResponse](t, api.do("GET", "/lists?boardId="+board.ID, token, nil))
	require.Len(t, lists, 2)
	assert.Equal(t, "Done", lists[0].Title)
	assert.Equal(t, "Todo", lists[1].Title)
	assert.Equal(t, 1, lists[1].Position)
}
