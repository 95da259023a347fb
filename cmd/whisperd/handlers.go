package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/whispernote/whisperd/pkg/logging"
)

// handleGetStatus returns daemon status via socket
func (d *WhisperDaemon) handleGetStatus(c *gin.Context) {
	resp, err := d.socketClient.SendCommand("STATUS")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": resp.Error})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleEncode frames a payload into an FSK WAV file via socket
func (d *WhisperDaemon) handleEncode(c *gin.Context) {
	var req struct {
		Payload string `json:"payload" binding:"required"` // base64
		Output  string `json:"output"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid base64"})
		return
	}

	record, err := d.socketClient.EncodeAudio(payload, req.Output)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "encoded",
		"transmission": record,
	})
}

// handleEncodeRF frames a payload for the RF transmit stage via socket
func (d *WhisperDaemon) handleEncodeRF(c *gin.Context) {
	var req struct {
		Payload string `json:"payload" binding:"required"` // base64
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid base64"})
		return
	}

	resp, err := d.socketClient.EncodeRF(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleDecode accepts an uploaded WAV capture and decodes it via socket
func (d *WhisperDaemon) handleDecode(c *gin.Context) {
	file, err := c.FormFile("capture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capture file is required"})
		return
	}

	// The core engine reads captures from its own filesystem, so stage
	// the upload in a temp file.
	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("whisperd-rx-%d.wav", time.Now().UnixNano()))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.Remove(tempPath)

	record, err := d.socketClient.DecodeFile(tempPath)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "decoded",
		"transmission": record,
		"payload":      record.Payload,
	})
}

// handleGetTransmissions returns transmission history via socket
func (d *WhisperDaemon) handleGetTransmissions(c *gin.Context) {
	if direction := c.Query("direction"); direction != "" {
		resp, err := d.socketClient.SendCommand("TRANSMISSIONS:direction:" + direction)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !resp.Success {
			c.JSON(http.StatusBadRequest, gin.H{"error": resp.Error})
			return
		}
		c.JSON(http.StatusOK, resp.Data)
		return
	}

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 50
	}

	records, err := d.socketClient.GetTransmissions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transmissions": records,
		"count":         len(records),
	})
}

// handleGetProfile returns the active modulation profile via socket
func (d *WhisperDaemon) handleGetProfile(c *gin.Context) {
	profile, err := d.socketClient.GetProfile()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// handleSetProfile updates one modulation profile field via socket
func (d *WhisperDaemon) handleSetProfile(c *gin.Context) {
	var req struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := d.socketClient.SendCommand(fmt.Sprintf("PROFILE:set:%s:%s", req.Key, req.Value))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !resp.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": resp.Error})
		return
	}

	c.JSON(http.StatusOK, resp.Data)
}

// handleGetMonitorStats returns audio monitoring statistics
func (d *WhisperDaemon) handleGetMonitorStats(c *gin.Context) {
	monitor := d.coreEngine.Monitor()
	if monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "audio monitor not available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"statistics":     monitor.GetStatistics(),
		"current_levels": monitor.GetCurrentLevels(),
		"tones":          monitor.GetCurrentTones(),
		"monitoring":     monitor.IsRunning(),
	})
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// handleAudioWebSocket handles WebSocket connections for real-time audio data
func (d *WhisperDaemon) handleAudioWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warnf("web", "WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logging.Info("web", "Audio WebSocket client connected")

	monitor := d.coreEngine.Monitor()
	if monitor == nil {
		conn.WriteJSON(map[string]string{
			"error": "audio monitor not available",
		})
		return
	}

	// Send data at 10Hz (100ms intervals) to reduce CPU usage
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Drain client messages so pings are answered
	go func() {
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
		}
	}()

	// Send audio visualization data
	for {
		select {
		case <-ticker.C:
			vizData := monitor.GetVisualizationData()

			data := map[string]interface{}{
				"type":        "audio_data",
				"timestamp":   vizData.SpectrumData.Timestamp,
				"sample_rate": vizData.SpectrumData.SampleRate,
				// VU meter data
				"rms":      vizData.LevelData.RMSLevel,
				"peak":     vizData.LevelData.PeakLevel,
				"clipping": vizData.LevelData.Clipping,
				// Tone comparator data
				"mark_db":         vizData.ToneData.MarkLevel,
				"space_db":        vizData.ToneData.SpaceLevel,
				"tone_balance_db": vizData.ToneData.ToneBalance,
				// Spectrum data
				"spectrum": map[string]interface{}{
					"bins":      vizData.SpectrumData.Spectrum,
					"freq_step": vizData.SpectrumData.FreqStep,
				},
			}

			if err := conn.WriteJSON(data); err != nil {
				logging.Warnf("web", "WebSocket write error: %v", err)
				return
			}

		case <-d.ctx.Done():
			logging.Info("web", "Audio WebSocket client disconnected (context cancelled)")
			return
		}
	}
}
