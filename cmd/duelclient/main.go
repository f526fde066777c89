package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fitduel-vn/fitduel/internal/domains/dtos"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Development driver for the duel server. Connects one websocket
// session and turns stdin lines into duel messages:
//
//	search <challengeId>
//	confirm <duelId> yes|no
//	score <duelId> <dataType> <value>
//	cancel <duelId>
type payload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func main() {
	serverUrl := flag.String("url", "ws://localhost:8080/ws", "duel server websocket url")
	token := flag.String("token", "", "bearer token")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*serverUrl+"?token="+*token, nil)
	if err != nil {
		logging.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				logging.Fatal("connection closed", zap.Error(err))
			}
			fmt.Printf("<< %s\n", message)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		msg, err := buildMessage(fields)
		if err != nil {
			fmt.Println("!!", err)
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			logging.Fatal("failed to send", zap.Error(err))
		}
	}
}

func buildMessage(fields []string) (payload, error) {
	switch fields[0] {
	case "search":
		if len(fields) != 2 {
			return payload{}, fmt.Errorf("usage: search <challengeId>")
		}
		return payload{Type: "search_opponent", Data: dtos.SearchOpponentRequest{
			ChallengeId: fields[1],
		}}, nil
	case "confirm":
		if len(fields) != 3 {
			return payload{}, fmt.Errorf("usage: confirm <duelId> yes|no")
		}
		return payload{Type: "confirm_match", Data: dtos.ConfirmMatchRequest{
			DuelId: fields[1],
			Answer: fields[2],
		}}, nil
	case "score":
		if len(fields) != 4 {
			return payload{}, fmt.Errorf("usage: score <duelId> <dataType> <value>")
		}
		value, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return payload{}, fmt.Errorf("bad value: %w", err)
		}
		return payload{Type: "submit_health_data", Data: dtos.SubmitHealthDataRequest{
			DuelId:    fields[1],
			DataType:  fields[2],
			Value:     value,
			Timestamp: time.Now(),
		}}, nil
	case "cancel":
		if len(fields) != 2 {
			return payload{}, fmt.Errorf("usage: cancel <duelId>")
		}
		return payload{Type: "cancel_duel", Data: dtos.CancelDuelRequest{
			DuelId: fields[1],
		}}, nil
	}
	return payload{}, fmt.Errorf("unknown command %q", fields[0])
}
