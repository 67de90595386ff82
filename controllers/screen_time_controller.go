package controllers

import (
	"PinguinTube/middlewares"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultSummaryDays = 7
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var screenTimeService ScreenTimeServiceInterface

func SetScreenTimeService(service ScreenTimeServiceInterface) {
	screenTimeService = service
}

func ResetScreenTime(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	if err := screenTimeService.ResetToday(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Screen time reset for today"})
}

func GetScreenTimeSummary(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", defaultSummaryDays)
	if !ok {
		return
	}

	summary, err := screenTimeService.GetSummary(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func ExportScreenTime(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", defaultSummaryDays)
	if !ok {
		return
	}

	data, err := screenTimeService.ExportSummary(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="screen-time-%d-%dd.xlsx"`, childID, days))
	c.Data(http.StatusOK, xlsxContentType, data)
}
