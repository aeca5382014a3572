// этот код не зависит от приложения,
// и нужен только для ручной проверки административного канала статусов
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
)

func main() {
	// конфигурация из config.yaml
	brokerAddress := "localhost:9092"
	topic := "order-status-updates"

	// JSON-сообщение: order_id берётся из ответа POST /checkout
	message := `{
           "order_id": "1756700000000-a1b2c3d4",
           "status": "ready"
        }`

	// настройки писателя (producer-а)
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerAddress),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer writer.Close()

	log.Println("Sending message to Kafka...")
	err := writer.WriteMessages(context.Background(),
		kafka.Message{
			Value: []byte(message),
		},
	)
	if err != nil {
		log.Fatalf("Failed to write message: %v", err)
	}
	fmt.Println("Message sent successfully!")
}
