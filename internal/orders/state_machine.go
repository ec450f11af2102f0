package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/ledger"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
)

// TransitionResult reports what Apply did. Applied is false when the order
// was not in a state the event can act on; that is a no-op, not an error.
type TransitionResult struct {
	Applied bool
	From    enums.OrderStatus
	To      enums.OrderStatus
}

type transitionSpec struct {
	allowedFrom []enums.OrderStatus
	target      enums.OrderStatus
	movement    enums.StockMovementType
	paymentFrom enums.PaymentStatus
	paymentTo   enums.PaymentStatus
	settles     bool
	outboxType  enums.OutboxEventType
}

var transitions = map[enums.PaymentEvent]transitionSpec{
	enums.EventSettlement: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusPending},
		target:      enums.OrderStatusProcessing,
		movement:    enums.StockMovementSold,
		paymentFrom: enums.PaymentStatusPending,
		paymentTo:   enums.PaymentStatusPaid,
		outboxType:  enums.OutboxOrderPaid,
	},
	enums.EventPaymentFailed: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusPending},
		target:      enums.OrderStatusCancelled,
		movement:    enums.StockMovementRelease,
		paymentFrom: enums.PaymentStatusPending,
		paymentTo:   enums.PaymentStatusExpired,
		outboxType:  enums.OutboxOrderCancelled,
	},
	enums.EventExpiryTimeout: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusPending},
		target:      enums.OrderStatusCancelled,
		movement:    enums.StockMovementRelease,
		paymentFrom: enums.PaymentStatusPending,
		paymentTo:   enums.PaymentStatusExpired,
		outboxType:  enums.OutboxOrderExpired,
	},
	enums.EventRefund: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered},
		target:      enums.OrderStatusRefunded,
		movement:    enums.StockMovementRefund,
		paymentFrom: enums.PaymentStatusPaid,
		paymentTo:   enums.PaymentStatusRefunded,
		outboxType:  enums.OutboxOrderRefunded,
	},
	enums.EventRefundApproved: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered},
		target:      enums.OrderStatusRefunded,
		movement:    enums.StockMovementRefund,
		paymentFrom: enums.PaymentStatusPaid,
		paymentTo:   enums.PaymentStatusRefunded,
		outboxType:  enums.OutboxOrderRefunded,
	},
	enums.EventSettle: {
		allowedFrom: []enums.OrderStatus{enums.OrderStatusDelivered},
		target:      enums.OrderStatusCompleted,
		paymentFrom: enums.PaymentStatusPaid,
		settles:     true,
		outboxType:  enums.OutboxOrderCompleted,
	},
}

// StateMachine applies payment lifecycle events to orders. Every application
// runs against a caller-supplied transaction with the order row locked, so
// the status change, history entry, stock movements, payment update and
// outbox event commit or roll back together.
type StateMachine struct {
	repo       Repository
	ledgerRepo ledger.Repository
	outboxSvc  *outbox.Service
	logg       *logger.Logger
}

// NewStateMachine wires the transition engine.
func NewStateMachine(repo Repository, ledgerRepo ledger.Repository, outboxSvc *outbox.Service, logg *logger.Logger) (*StateMachine, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &StateMachine{repo: repo, ledgerRepo: ledgerRepo, outboxSvc: outboxSvc, logg: logg}, nil
}

// Apply locks the order, checks the event's precondition and performs the
// transition. A precondition miss returns Applied=false with a nil error;
// callers treat it as already handled.
func (sm *StateMachine) Apply(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, event enums.PaymentEvent, note string) (*TransitionResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	spec, ok := transitions[event]
	if !ok {
		return nil, fmt.Errorf("unsupported payment event %q", event)
	}

	repo := sm.repo.WithTx(tx)
	order, err := repo.FindForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	if !eventAllowed(spec, order) {
		if sm.logg != nil {
			logCtx := sm.logg.WithFields(ctx, map[string]any{
				"order_id":       orderID.String(),
				"event":          event.String(),
				"status":         order.Status.String(),
				"payment_status": order.PaymentStatus.String(),
				"terminal":       IsTerminal(order.Status),
			})
			sm.logg.Info(logCtx, "transition precondition not met, skipping")
		}
		return &TransitionResult{Applied: false, From: order.Status, To: order.Status}, nil
	}

	updates := map[string]any{"status": spec.target}
	if spec.paymentTo != "" {
		updates["payment_status"] = spec.paymentTo
	}
	if spec.settles {
		updates["settled_at"] = time.Now()
	}
	if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
	}

	history := &models.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    orderID,
		FromStatus: order.Status,
		ToStatus:   spec.target,
		Event:      event,
		Note:       note,
	}
	if err := repo.CreateStatusHistory(ctx, history); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording status history")
	}

	if spec.movement != "" {
		if err := sm.bookMovements(ctx, tx, order, spec.movement); err != nil {
			return nil, err
		}
	}

	if spec.paymentTo != "" {
		paymentUpdates := map[string]any{"status": spec.paymentTo}
		if spec.paymentTo == enums.PaymentStatusPaid {
			paymentUpdates["paid_at"] = time.Now()
		}
		if err := repo.UpdatePaymentsForOrder(ctx, orderID, spec.paymentFrom, paymentUpdates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating payment status")
		}
	}

	if err := sm.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     spec.outboxType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data: outbox.OrderStatusChangedEvent{
			OrderID:    orderID,
			FromStatus: order.Status.String(),
			ToStatus:   spec.target.String(),
			Event:      event.String(),
			OccurredAt: time.Now(),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing outbox event")
	}

	return &TransitionResult{Applied: true, From: order.Status, To: spec.target}, nil
}

func (sm *StateMachine) bookMovements(ctx context.Context, tx *gorm.DB, order *models.Order, movementType enums.StockMovementType) error {
	if len(order.Items) == 0 {
		if sm.logg != nil {
			sm.logg.Warn(sm.logg.WithOrderID(ctx, order.ID.String()), "order has no items, skipping stock movements")
		}
		return nil
	}

	lines := make([]ledger.MovementLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, ledger.MovementLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	svc, err := ledger.NewService(sm.ledgerRepo.WithTx(tx))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "binding ledger service")
	}

	// The order lock makes double booking impossible within one process, but a
	// batch may already exist if an operator replayed history rows by hand.
	booked, err := svc.HasMovements(ctx, order.ID, movementType)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing movements")
	}
	if booked {
		if sm.logg != nil {
			sm.logg.Warn(sm.logg.WithOrderID(ctx, order.ID.String()), "movement batch already booked, skipping")
		}
		return nil
	}

	if _, err := svc.BookMovements(ctx, ledger.BookMovementsInput{
		OrderID: order.ID,
		Type:    movementType,
		Lines:   lines,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "booking stock movements")
	}
	return nil
}

// eventAllowed checks the full precondition: order status, the order's
// payment status when the event demands one, and for the settlement event
// that the order has not been settled before.
func eventAllowed(spec transitionSpec, order *models.Order) bool {
	if spec.paymentFrom != "" && order.PaymentStatus != spec.paymentFrom {
		return false
	}
	if spec.settles && order.SettledAt != nil {
		return false
	}
	for _, status := range spec.allowedFrom {
		if status == order.Status {
			return true
		}
	}
	return false
}
