package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fakesalmon/minefleet/internal/actor"
	"github.com/fakesalmon/minefleet/internal/bot"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

// Inbound command payloads. Every command except bot:add is scoped by id.

type addPayload struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Connect bool   `json:"connect"`
}

type idPayload struct {
	ID string `json:"id"`
}

type togglePayload struct {
	ID      string `json:"id"`
	Connect bool   `json:"connect"`
}

type descPayload struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type chatPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type holdSlotPayload struct {
	ID   string `json:"id"`
	Slot int    `json:"slot"`
}

type unequipArmorPayload struct {
	ID   string `json:"id"`
	Part string `json:"part"`
}

type movePayload struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	On        bool   `json:"on"`
}

type coordsPayload struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

type rotatePayload struct {
	ID     string  `json:"id"`
	DYaw   float64 `json:"dYaw"`
	DPitch float64 `json:"dPitch"`
}

type anglesPayload struct {
	ID    string  `json:"id"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

type setActionPayload struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Mode       string `json:"mode"`
	IntervalGt int    `json:"intervalGt,omitempty"`
	WholeStack bool   `json:"wholeStack,omitempty"`
}

type setTweaksPayload struct {
	ID     string          `json:"id"`
	Tweaks bot.TweaksPatch `json:"tweaks"`
}

func toastFrame(msg string) []byte {
	frame, err := marshalFrame("error:toast", map[string]string{"message": msg})
	if err != nil {
		return nil
	}
	return frame
}

// handleCommand decodes and executes one inbound frame. Failures go back to
// the sending dashboard as a toast; they never affect other clients or bots.
func (s *HttpServer) handleCommand(raw []byte) [][]byte {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return [][]byte{toastFrame("malformed command frame")}
	}

	m := s.fleet()
	if m == nil {
		return [][]byte{toastFrame("fleet is not ready")}
	}

	if err := s.dispatch(m, env); err != nil {
		s.logger.Warn("command failed", slog.String("type", env.Type), slog.Any("error", err))
		return [][]byte{toastFrame(err.Error())}
	}
	return nil
}

func (s *HttpServer) dispatch(m *bot.Manager, env envelope) error {
	switch env.Type {
	case "bot:add":
		var p addPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:add payload: %w", err)
		}
		_, err := m.AddEntry(p.ID, p.Name, p.Connect)
		return err

	case "bot:remove":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:remove payload: %w", err)
		}
		return m.RemoveEntry(p.ID)

	case "bot:toggle":
		var p togglePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:toggle payload: %w", err)
		}
		return m.SetConnectionIntent(p.ID, p.Connect)

	case "bot:desc":
		var p descPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:desc payload: %w", err)
		}
		return m.SetDescription(p.ID, p.Description)

	case "bot:chat":
		var p chatPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:chat payload: %w", err)
		}
		return m.Chat(p.ID, p.Text)

	case "bot:respawn":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:respawn payload: %w", err)
		}
		return m.Respawn(p.ID)

	case "bot:swapHands":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:swapHands payload: %w", err)
		}
		return m.SwapHands(p.ID)

	case "bot:holdSlot":
		var p holdSlotPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:holdSlot payload: %w", err)
		}
		return m.HoldSlot(p.ID, p.Slot)

	case "bot:unequipArmor":
		var p unequipArmorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:unequipArmor payload: %w", err)
		}
		return m.UnequipArmor(p.ID, actor.ArmorPart(p.Part))

	case "bot:moveContinuous":
		var p movePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:moveContinuous payload: %w", err)
		}
		return m.SetContinuousMove(p.ID, p.Direction, p.On)

	case "bot:jumpOnce":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:jumpOnce payload: %w", err)
		}
		return m.JumpOnce(p.ID)

	case "bot:sneakToggle":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:sneakToggle payload: %w", err)
		}
		return m.ToggleSneak(p.ID)

	case "bot:gotoXYZ":
		var p coordsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:gotoXYZ payload: %w", err)
		}
		return m.NavigateTo(p.ID, p.X, p.Y, p.Z)

	case "bot:stopPath":
		var p idPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:stopPath payload: %w", err)
		}
		return m.StopNavigation(p.ID)

	case "bot:rotateStep":
		var p rotatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:rotateStep payload: %w", err)
		}
		return m.RotateStep(p.ID, p.DYaw, p.DPitch)

	case "bot:lookAngles":
		var p anglesPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:lookAngles payload: %w", err)
		}
		return m.LookAngles(p.ID, p.Yaw, p.Pitch)

	case "bot:lookAt":
		var p coordsPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:lookAt payload: %w", err)
		}
		return m.LookAtPoint(p.ID, p.X, p.Y, p.Z)

	case "bot:setAction":
		var p setActionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:setAction payload: %w", err)
		}
		return m.SetActionMode(p.ID, scheduler.Key(p.Action), scheduler.Mode(p.Mode), scheduler.Options{
			IntervalTicks: p.IntervalGt,
			WholeStack:    p.WholeStack,
		})

	case "bot:setTweaks":
		var p setTweaksPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return fmt.Errorf("bad bot:setTweaks payload: %w", err)
		}
		return m.SetTweaks(p.ID, p.Tweaks)

	default:
		return fmt.Errorf("unknown command %q", env.Type)
	}
}
