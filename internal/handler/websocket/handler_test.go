package websocket_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	wshandler "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/handler/websocket"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/hub"
)

func startServer(t *testing.T, origins ...string) (*hub.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := hub.NewHub(func() domain.GridState {
		return domain.StateFromCells([]domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}})
	})
	go h.Run()
	t.Cleanup(h.Stop)

	r := gin.New()
	r.GET("/ws/grid", wshandler.NewWebSocketHandler(h, origins...).HandleConnection)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/grid"
}

func TestHandleConnection_SendsSnapshot(t *testing.T) {
	_, url := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg hub.GridMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "grid", msg.Type)
	assert.Equal(t, 1, msg.Dimension)
	assert.Len(t, msg.Cells, 1)
}

func TestHandleConnection_RejectsForeignOrigin(t *testing.T) {
	_, url := startServer(t, "http://localhost:3000")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHandleConnection_PlainHTTPIsRejected(t *testing.T) {
	_, url := startServer(t)

	resp, err := http.Get("http" + strings.TrimPrefix(url, "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
