package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tikiti/internal/models"
)

// OrderRepository handles order data operations
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// OrderCreateParams holds the data needed to persist a new order in
// pending_creation. Totals are provisional until LockTotals runs.
type OrderCreateParams struct {
	UserID            int
	GuestSessionID    string
	EventID           int
	Contact           models.CustomerContact
	Items             []models.CartItem
	CouponCode        string
	SupersedesOrderID int
}

// LockedLineItem is one authoritatively-priced line item produced by the
// total-locking step.
type LockedLineItem struct {
	TicketTypeID int
	TicketName   string
	UnitPrice    int
	Quantity     int
}

// LockedTotals is the result of recomputing an order's totals server-side.
type LockedTotals struct {
	Items               []LockedLineItem
	OriginalTotalAmount int
	TotalAmount         int
	CouponCode          string
	DiscountAmount      int
}

// IssuedTicket is the data needed to persist one ticket at completion time.
type IssuedTicket struct {
	ID           string
	TicketTypeID int
	TicketName   string
	Token        string
}

const orderColumns = `id, order_number, user_id, guest_session_id, event_id,
	customer_name, customer_email, customer_phone,
	original_total_amount, total_amount, coupon_code, discount_amount,
	status, payment_status, failure_reason, checkout_request_id,
	supersedes_order_id, created_at, updated_at`

// Create persists a new order in pending_creation together with its line
// items, carried over verbatim from the cart snapshot.
func (r *OrderRepository) Create(params OrderCreateParams) (*models.Order, error) {
	if err := params.Contact.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if len(params.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Generate unique order number (retry if collision)
	orderNumber := models.GenerateOrderNumber()
	for i := 0; i < 5; i++ {
		var exists bool
		err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = ?)", orderNumber).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			break
		}
		orderNumber = models.GenerateOrderNumber()
	}

	originalTotal := 0
	for _, item := range params.Items {
		originalTotal += item.UnitPrice * item.Quantity
	}

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO orders (order_number, user_id, guest_session_id, event_id,
			customer_name, customer_email, customer_phone,
			original_total_amount, total_amount, coupon_code,
			status, payment_status, supersedes_order_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		orderNumber, params.UserID, params.GuestSessionID, params.EventID,
		params.Contact.Name, params.Contact.Email, params.Contact.Phone,
		originalTotal, originalTotal, params.CouponCode,
		models.OrderPendingCreation, models.PaymentStatusPending,
		params.SupersedesOrderID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order id: %w", err)
	}

	for _, item := range params.Items {
		_, err = tx.Exec(`
			INSERT INTO order_items (order_id, ticket_type_id, ticket_name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			orderID, item.TicketTypeID, item.TicketName, item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}

	return r.GetByID(int(orderID))
}

// GetByID retrieves an order by ID, including line items and any tickets
func (r *OrderRepository) GetByID(id int) (*models.Order, error) {
	return r.getBy("id = ?", id)
}

// GetByOrderNumber retrieves an order by order number
func (r *OrderRepository) GetByOrderNumber(orderNumber string) (*models.Order, error) {
	return r.getBy("order_number = ?", orderNumber)
}

// GetByCheckoutRequestID retrieves the order a provider callback refers to
func (r *OrderRepository) GetByCheckoutRequestID(checkoutRequestID string) (*models.Order, error) {
	return r.getBy("checkout_request_id = ?", checkoutRequestID)
}

func (r *OrderRepository) getBy(where string, arg interface{}) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM orders WHERE %s", orderColumns, where)

	order, err := scanOrder(r.db.QueryRow(query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if err := r.loadItems(order); err != nil {
		return nil, err
	}

	if order.Status == models.OrderCompleted {
		if err := r.loadTickets(order); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// LockTotals transitions an order from pending_creation to
// pending_payment_initiation, writing the authoritatively recomputed totals
// and decrementing inventory. The decrement is a compare-and-decrement:
// concurrent checkouts cannot jointly oversell a ticket type.
func (r *OrderRepository) LockTotals(orderID int, locked LockedTotals) (*models.Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range locked.Items {
		result, err := tx.Exec(`
			UPDATE ticket_types
			SET sold = sold + ?
			WHERE id = ? AND sold + ? <= quantity`,
			item.Quantity, item.TicketTypeID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement inventory: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			var remaining int
			if err := tx.QueryRow(
				"SELECT quantity - sold FROM ticket_types WHERE id = ?",
				item.TicketTypeID).Scan(&remaining); err != nil {
				return nil, fmt.Errorf("failed to read remaining stock: %w", err)
			}
			return nil, &models.SoldOutError{
				TicketTypeID:   item.TicketTypeID,
				TicketTypeName: item.TicketName,
				Requested:      item.Quantity,
				Remaining:      remaining,
			}
		}
	}

	// Rewrite line items with the authoritative catalog prices
	if _, err := tx.Exec("DELETE FROM order_items WHERE order_id = ?", orderID); err != nil {
		return nil, fmt.Errorf("failed to clear provisional items: %w", err)
	}
	for _, item := range locked.Items {
		_, err = tx.Exec(`
			INSERT INTO order_items (order_id, ticket_type_id, ticket_name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			orderID, item.TicketTypeID, item.TicketName, item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to write locked item: %w", err)
		}
	}

	result, err := tx.Exec(`
		UPDATE orders
		SET status = ?, original_total_amount = ?, total_amount = ?,
			coupon_code = ?, discount_amount = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.OrderPendingPaymentInitiation,
		locked.OriginalTotalAmount, locked.TotalAmount,
		locked.CouponCode, locked.DiscountAmount, time.Now(),
		orderID, models.OrderPendingCreation)
	if err != nil {
		return nil, fmt.Errorf("failed to lock totals: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrInvalidTransition
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit total locking: %w", err)
	}

	return r.GetByID(orderID)
}

// MarkProcessing transitions an order into processing. The guarded update
// is the duplicate-initiation guard: an order leaves
// pending_payment_initiation exactly once, so a second initiation attempt
// is rejected before the provider is ever contacted.
func (r *OrderRepository) MarkProcessing(orderID int) error {
	result, err := r.db.Exec(`
		UPDATE orders
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.OrderProcessing, time.Now(),
		orderID, models.OrderPendingPaymentInitiation)
	if err != nil {
		return fmt.Errorf("failed to mark order processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		order, err := r.GetByID(orderID)
		if err != nil {
			return err
		}
		if order.IsInFlight() || order.IsCompleted() {
			return models.ErrDuplicatePaymentAttempt
		}
		return models.ErrInvalidTransition
	}

	return nil
}

// MarkSTKPushSent records the provider's acknowledgement of a push payment
// together with the correlation id the success/failure callback will carry
func (r *OrderRepository) MarkSTKPushSent(orderID int, checkoutRequestID string) error {
	return r.recordReference(orderID, models.OrderSTKPushSent, checkoutRequestID)
}

// MarkPendingManual switches an order to the manual bank-transfer path,
// recording the reference the back-office confirmation will quote
func (r *OrderRepository) MarkPendingManual(orderID int, reference string) error {
	return r.recordReference(orderID, models.OrderPendingManual, reference)
}

func (r *OrderRepository) recordReference(orderID int, to models.OrderStatus, reference string) error {
	result, err := r.db.Exec(`
		UPDATE orders
		SET status = ?, checkout_request_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, reference, time.Now(), orderID, models.OrderProcessing)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrInvalidTransition
	}

	return nil
}

// MarkFailed force-transitions an order to failed from any non-terminal
// state, recording the fine-grained payment status and the failure reason,
// and releases any inventory reserved at total-locking time.
func (r *OrderRepository) MarkFailed(orderID int, paymentStatus models.PaymentStatus, reason string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status models.OrderStatus
	err = tx.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrOrderNotFound
		}
		return fmt.Errorf("failed to read order status: %w", err)
	}

	if status.IsTerminal() {
		// Terminal states are final; a late failure signal is a no-op.
		return models.ErrInvalidTransition
	}

	// Inventory was only decremented once totals were locked
	if status != models.OrderPendingCreation {
		if err := releaseInventory(tx, orderID); err != nil {
			return err
		}
	}

	_, err = tx.Exec(`
		UPDATE orders
		SET status = ?, payment_status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ?`,
		models.OrderFailed, paymentStatus, reason, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order failure: %w", err)
	}

	return nil
}

func releaseInventory(tx *sql.Tx, orderID int) error {
	_, err := tx.Exec(`
		UPDATE ticket_types
		SET sold = sold - (
			SELECT oi.quantity FROM order_items oi
			WHERE oi.order_id = ? AND oi.ticket_type_id = ticket_types.id
		)
		WHERE id IN (SELECT ticket_type_id FROM order_items WHERE order_id = ?)`,
		orderID, orderID)
	if err != nil {
		return fmt.Errorf("failed to release inventory: %w", err)
	}
	return nil
}

// ProcessOrderCompletion completes an order, creates its tickets and
// redeems the applied coupon in a single transaction. The guarded status
// update makes the whole operation idempotent: a re-delivered success
// callback finds the order already completed and gets ErrAlreadyIssued.
func (r *OrderRepository) ProcessOrderCompletion(orderID int, tickets []IssuedTicket) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.Exec(`
		UPDATE orders
		SET status = ?, payment_status = ?, failure_reason = '', updated_at = ?
		WHERE id = ? AND status IN (?, ?, ?)`,
		models.OrderCompleted, models.PaymentStatusCompleted, now,
		orderID, models.OrderProcessing, models.OrderSTKPushSent, models.OrderPendingManual)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var status models.OrderStatus
		err := tx.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read order status: %w", err)
		}
		if status == models.OrderCompleted {
			return models.ErrAlreadyIssued
		}
		return models.ErrInvalidTransition
	}

	for _, ticket := range tickets {
		_, err = tx.Exec(`
			INSERT INTO tickets (id, order_id, ticket_type_id, ticket_name, token, redeemed, issued_at)
			VALUES (?, ?, ?, ?, ?, 0, ?)`,
			ticket.ID, orderID, ticket.TicketTypeID, ticket.TicketName, ticket.Token, now)
		if err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
	}

	// Re-validate and redeem the coupon atomically with completion so
	// concurrent shoppers cannot jointly exhaust a limited-use coupon
	var couponCode string
	if err := tx.QueryRow("SELECT coupon_code FROM orders WHERE id = ?", orderID).Scan(&couponCode); err != nil {
		return fmt.Errorf("failed to read coupon code: %w", err)
	}
	if couponCode != "" {
		result, err := tx.Exec(`
			UPDATE coupons
			SET used_count = used_count + 1
			WHERE code = ? AND (usage_limit IS NULL OR used_count < usage_limit)`,
			couponCode)
		if err != nil {
			return fmt.Errorf("failed to redeem coupon: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return models.ErrCouponExhausted
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order completion: %w", err)
	}

	return nil
}

// GetExpiredOrders retrieves in-flight orders that have outlived the
// payment ceiling without a provider confirmation
func (r *OrderRepository) GetExpiredOrders(ceiling time.Duration) ([]*models.Order, error) {
	cutoff := time.Now().Add(-ceiling)

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE status IN (?, ?, ?) AND updated_at < ?
		ORDER BY created_at ASC`, orderColumns)

	rows, err := r.db.Query(query,
		models.OrderProcessing, models.OrderSTKPushSent, models.OrderPendingManual, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetByUser retrieves orders for a user, newest first
func (r *OrderRepository) GetByUser(userID int, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, orderColumns)

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetByEvent retrieves orders for an event, newest first
func (r *OrderRepository) GetByEvent(eventID int, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE event_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, orderColumns)

	rows, err := r.db.Query(query, eventID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get event orders: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// CountCompletedWithCoupon counts a user's completed orders that redeemed
// the given coupon; used to enforce per-user limits
func (r *OrderRepository) CountCompletedWithCoupon(couponCode string, userID int) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM orders
		WHERE coupon_code = ? AND user_id = ? AND status = ?`,
		couponCode, userID, models.OrderCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupon usage: %w", err)
	}
	return count, nil
}

func (r *OrderRepository) loadItems(order *models.Order) error {
	rows, err := r.db.Query(`
		SELECT id, order_id, ticket_type_id, ticket_name, unit_price, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY ticket_type_id ASC`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.TicketTypeID,
			&item.TicketName, &item.UnitPrice, &item.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

func (r *OrderRepository) loadTickets(order *models.Order) error {
	rows, err := r.db.Query(`
		SELECT id, order_id, ticket_type_id, ticket_name, token, redeemed, issued_at
		FROM tickets
		WHERE order_id = ?
		ORDER BY issued_at ASC, id ASC`, order.ID)
	if err != nil {
		return fmt.Errorf("failed to get order tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ticket := &models.Ticket{}
		if err := rows.Scan(&ticket.ID, &ticket.OrderID, &ticket.TicketTypeID,
			&ticket.TicketName, &ticket.Token, &ticket.Redeemed, &ticket.IssuedAt); err != nil {
			return fmt.Errorf("failed to scan ticket: %w", err)
		}
		order.Tickets = append(order.Tickets, ticket)
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.GuestSessionID,
		&order.EventID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&order.OriginalTotalAmount,
		&order.TotalAmount,
		&order.CouponCode,
		&order.DiscountAmount,
		&order.Status,
		&order.PaymentStatus,
		&order.FailureReason,
		&order.CheckoutRequestID,
		&order.SupersedesOrderID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrders(rows *sql.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
