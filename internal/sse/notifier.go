package sse

import (
	"time"

	"github.com/GTDGit/catalog_api/internal/models"
)

// CatalogNotifier is the interface services and workers use to emit catalog events.
type CatalogNotifier interface {
	NotifyProductCreated(p *models.ProductView)
	NotifyProductUpdated(p *models.ProductView)
	NotifyProductStatusChanged(p *models.ProductView)
	NotifyProductArchived(p *models.ProductView)
	NotifyLowStock(count int)
}

// HubNotifier implements CatalogNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyProductCreated(p *models.ProductView) {
	n.broadcastProduct(EventProductCreated, p)
}

func (n *HubNotifier) NotifyProductUpdated(p *models.ProductView) {
	n.broadcastProduct(EventProductUpdated, p)
}

func (n *HubNotifier) NotifyProductStatusChanged(p *models.ProductView) {
	n.broadcastProduct(EventProductStatusChanged, p)
}

func (n *HubNotifier) NotifyProductArchived(p *models.ProductView) {
	n.broadcastProduct(EventProductArchived, p)
}

func (n *HubNotifier) NotifyLowStock(count int) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{
		Event:         EventStockLowAlert,
		LowStockCount: &count,
		Timestamp:     time.Now(),
	})
}

func (n *HubNotifier) broadcastProduct(eventType EventType, p *models.ProductView) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(productToEvent(eventType, p))
}

func productToEvent(eventType EventType, p *models.ProductView) *CatalogEvent {
	return &CatalogEvent{
		Event:     eventType,
		ProductID: p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Status:    string(p.Status),
		Quantity:  p.Quantity,
		LowStock:  p.LowStock,
		Version:   p.Version,
		Timestamp: time.Now(),
	}
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifyProductCreated(p *models.ProductView)       {}
func (n *NopNotifier) NotifyProductUpdated(p *models.ProductView)       {}
func (n *NopNotifier) NotifyProductStatusChanged(p *models.ProductView) {}
func (n *NopNotifier) NotifyProductArchived(p *models.ProductView)      {}
func (n *NopNotifier) NotifyLowStock(count int)                         {}
