package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

var csvHeader = []string{
	"ID", "Full Name", "Company", "Email", "Phone", "Status",
	"Go Factors", "No-Go Factors", "Notes", "Created At",
}

// ExportCSV streams every record as a CSV attachment, one row per
// client in list order.
func (h *ClientHandler) ExportCSV(c *gin.Context) {
	clients, err := h.repo.ListClients()
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, client := range clients {
		row := []string{
			strconv.FormatUint(uint64(client.ID), 10),
			client.FullName,
			deref(client.Company),
			deref(client.Email),
			deref(client.Phone),
			string(client.Status),
			deref(client.GoFactors),
			deref(client.NoGoFactors),
			deref(client.Notes),
			client.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="client_signals.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
