package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"passculture/database"
	"passculture/model"

	"github.com/gofiber/contrib/websocket"
)

var (
	stockClients = make(map[uint]map[*websocket.Conn]bool)
	stockMu      sync.Mutex
)

// StockUI is the availability snapshot pushed to subscribers of an offer.
type StockUI struct {
	Id                uint       `json:"id"`
	Price             string     `json:"price"`
	RemainingQuantity *int64     `json:"remainingQuantity"` // nil = unlimited
	BeginningDatetime *time.Time `json:"beginningDatetime,omitempty"`
	IsBookable        bool       `json:"isBookable"`
}

func offerStockChannel(offerId uint) string {
	return fmt.Sprintf("offer:%d:stock", offerId)
}

// FetchOfferStocks builds the availability list for one offer.
func FetchOfferStocks(offerId uint) ([]StockUI, error) {
	db := database.DB
	var stocks []model.Stock
	err := db.Preload("Offer").
		Where("offer_id = ? AND NOT is_soft_deleted", offerId).
		Order("beginning_datetime NULLS FIRST, id").
		Find(&stocks).Error
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := make([]StockUI, 0, len(stocks))
	for i := range stocks {
		s := &stocks[i]
		result = append(result, StockUI{
			Id:                s.ID,
			Price:             s.Price.StringFixed(2),
			RemainingQuantity: s.RemainingQuantity(),
			BeginningDatetime: s.BeginningDatetime,
			IsBookable:        s.IsBookable(1, now),
		})
	}
	return result, nil
}

// BroadcastOfferStock publishes the fresh availability of an offer. Every
// instance subscribed to the channel relays it to its websocket clients.
func BroadcastOfferStock(offerId uint) {
	stocks, err := FetchOfferStocks(offerId)
	if err != nil {
		log.Printf("broadcast: load stocks for offer %d: %v", offerId, err)
		return
	}
	payload, err := json.Marshal(stocks)
	if err != nil {
		return
	}
	if err := redisClient.Publish(context.Background(), offerStockChannel(offerId), payload).Err(); err != nil {
		log.Printf("broadcast: publish offer %d: %v", offerId, err)
	}
}

// StockWebsocket streams stock availability for one offer. The client gets
// the current snapshot on connect, then every change as it happens.
func StockWebsocket(c *websocket.Conn) {
	offerIdStr := c.Params("id")
	id64, _ := strconv.ParseUint(offerIdStr, 10, 64)
	offerId := uint(id64)

	defer func() {
		stockMu.Lock()
		if stockClients[offerId] != nil {
			delete(stockClients[offerId], c)
		}
		stockMu.Unlock()
		c.Close()
	}()

	stockMu.Lock()
	if stockClients[offerId] == nil {
		stockClients[offerId] = make(map[*websocket.Conn]bool)
	}
	stockClients[offerId][c] = true
	stockMu.Unlock()

	stocks, _ := FetchOfferStocks(offerId)
	c.WriteJSON(stocks)

	pubsub := redisClient.Subscribe(
		context.Background(),
		offerStockChannel(offerId),
	)
	defer pubsub.Close()

	channel := pubsub.Channel()

	for msg := range channel {
		payload := []byte(msg.Payload)

		stockMu.Lock()
		for conn := range stockClients[offerId] {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(stockClients[offerId], conn)
			}
		}
		stockMu.Unlock()
	}
}
