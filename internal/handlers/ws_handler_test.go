package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifeplanner-api/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWSHandler_DeliversSeriesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub()
	r := gin.New()
	r.GET("/ws", NewWSHandler(hub, nil).Subscribe)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topic=series-a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("series-a") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(realtime.Event{Type: realtime.EventOccurrenceSpawned, TaskID: 3, SeriesID: "series-a"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev realtime.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	require.Equal(t, realtime.EventOccurrenceSpawned, ev.Type)
	require.EqualValues(t, 3, ev.TaskID)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers("series-a") == 0 }, time.Second, 10*time.Millisecond)
}
