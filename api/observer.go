package api

import (
	"sync"

	"github.com/UkralStul/posterr-feed-service/internal/domain"
	"github.com/google/uuid"
)

// PostObserver хранит каналы для подписчиков на новые посты.
type PostObserver struct {
	mu sync.RWMutex
	//   map[subscriberID] channel
	subs map[string]chan *domain.Post
}

// NewPostObserver - конструктор для нашего наблюдателя.
func NewPostObserver() *PostObserver {
	return &PostObserver{
		subs: make(map[string]chan *domain.Post),
	}
}

// Subscribe регистрирует подписчика и возвращает его id и канал.
func (o *PostObserver) Subscribe() (string, <-chan *domain.Post) {
	ch := make(chan *domain.Post, 1)
	subID := uuid.NewString()

	o.mu.Lock()
	o.subs[subID] = ch
	o.mu.Unlock()

	return subID, ch
}

// Unsubscribe убирает подписчика. Канал не закрываем: рассылка могла
// снять снимок подписчиков до удаления.
func (o *PostObserver) Unsubscribe(subID string) {
	o.mu.Lock()
	delete(o.subs, subID)
	o.mu.Unlock()
}

// Notify асинхронно рассылает новый пост всем подписчикам.
func (o *PostObserver) Notify(post *domain.Post) {
	o.mu.RLock()
	subs := make([]chan *domain.Post, 0, len(o.subs))
	for _, ch := range o.subs {
		subs = append(subs, ch)
	}
	o.mu.RUnlock()

	// Запускаем в горутине, чтобы не блокировать мутацию.
	go func(p *domain.Post) {
		for _, ch := range subs {
			select {
			case ch <- p:
			default:
				// Клиент не успевает читать, пропускаем
			}
		}
	}(post)
}
