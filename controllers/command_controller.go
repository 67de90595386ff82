package controllers

import (
	"PinguinTube/middlewares"
	"PinguinTube/models"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var commandService CommandServiceInterface

func SetCommandService(service CommandServiceInterface) {
	commandService = service
}

func EnqueueCommand(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	var input struct {
		Kind    string `json:"kind" binding:"required"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondValidation(c, err.Error())
		return
	}

	kind := models.CommandKind(strings.ToUpper(strings.TrimSpace(input.Kind)))
	command, err := commandService.Enqueue(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID, kind, models.CommandPayload{Message: input.Message})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": command.ID, "status": command.Status, "data": command})
}

func ListCommands(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	commands, err := commandService.ListCommands(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands})
}

// ReconcileCommands закрывает просроченные PENDING команды ребёнка как FAILED
func ReconcileCommands(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	n, err := commandService.ReconcileExpired(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reconciled": n})
}

func CancelCommand(c *gin.Context) {
	command, err := commandService.Cancel(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), c.Param("command_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": command.ID, "status": command.Status, "data": command})
}
