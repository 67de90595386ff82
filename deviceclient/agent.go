package deviceclient

import (
	"PinguinTube/models"
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// maxUsageDelta верхняя граница минут в одном отчёте, которую принимает сервер
const maxUsageDelta = 1440

// ErrLoggedOut сессия отозвана командой LOGOUT или сервером
var ErrLoggedOut = errors.New("device session is no longer valid")

// CommandHandler применяет команду на устройстве. Ошибка превращается в FAILED ack.
type CommandHandler func(ctx context.Context, command models.Command) error

type Agent struct {
	Client  *Client
	Handler CommandHandler
	Logger  *zap.Logger

	sequence int64
	// неподтверждённый отчёт, повторяется с тем же sequence
	pendingSeq     int64
	pendingMinutes int
	accrued        int
}

// Tick один цикл опроса: забрать PENDING команды, применить, подтвердить каждую
func (a *Agent) Tick(ctx context.Context) error {
	commands, err := a.Client.PollCommands(ctx)
	if err != nil {
		if IsUnauthenticated(err) {
			return ErrLoggedOut
		}
		return err
	}

	for _, command := range commands {
		outcome, reason := models.CommandExecuted, ""
		if err := a.Handler(ctx, command); err != nil {
			outcome, reason = models.CommandFailed, err.Error()
		}

		result, err := a.Client.Ack(ctx, command.ID, outcome, reason)
		switch {
		case IsAlreadyApplied(err):
			// родитель успел отменить
			a.Logger.Info("command already finalized", zap.String("command_id", command.ID))
		case IsUnauthenticated(err):
			return ErrLoggedOut
		case err != nil:
			return err
		case result.SessionRevoked:
			return ErrLoggedOut
		}
	}
	return nil
}

// Report копит минуты и отправляет их с возрастающим sequence. Если отчёт не дошёл,
// следующий вызов повторяет ту же пару (sequence, minutes), сервер не посчитает её дважды.
// Накопленное за это время уходит следующим sequence после подтверждения.
func (a *Agent) Report(ctx context.Context, minutes int) (UsageResult, error) {
	a.accrued += minutes

	for {
		if a.pendingSeq == 0 {
			a.sequence++
			a.pendingSeq = a.sequence
			a.pendingMinutes = min(a.accrued, maxUsageDelta)
			a.accrued -= a.pendingMinutes
		}

		result, err := a.Client.ReportUsage(ctx, a.pendingMinutes, a.pendingSeq)
		if err != nil {
			if IsUnauthenticated(err) {
				return UsageResult{}, ErrLoggedOut
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				// сервер отверг отчёт окончательно, повтор не поможет
				a.Logger.Warn("usage report rejected",
					zap.Int64("sequence", a.pendingSeq),
					zap.Int("minutes", a.pendingMinutes),
					zap.Error(err))
				a.pendingSeq, a.pendingMinutes = 0, 0
			}
			return UsageResult{}, err
		}
		a.pendingSeq, a.pendingMinutes = 0, 0

		if a.accrued == 0 {
			return result, nil
		}
	}
}
