// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/order"
)

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService renders order emails and hands them to a Sender
type EmailService struct {
	config    config.EmailConfig
	siteName  string
	sender    Sender
	templates map[string]*template.Template
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewEmailService creates a new email service. Templates missing from
// cfg.TemplateDir fall back to the built-in layouts.
func NewEmailService(cfg config.EmailConfig, siteName string, sender Sender, logger logrus.FieldLogger) *EmailService {
	s := &EmailService{
		config:    cfg,
		siteName:  siteName,
		sender:    sender,
		templates: make(map[string]*template.Template),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.loadTemplates()
	return s
}

// SendOrderConfirmation tells the customer their payment went through
func (s *EmailService) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	if o.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", o.OrderNumber)
	}

	data := OrderConfirmationData{
		EmailTemplateData: s.base(o),
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.CreatedAt.Format("January 2, 2006"),
		OrderURL:          s.orderURL(o),
		Subtotal:          formatMoney(o.Subtotal, o.Currency),
		Tax:               formatMoney(o.Tax, o.Currency),
		Shipping:          formatMoney(o.Shipping, o.Currency),
		OrderTotal:        formatMoney(o.Total, o.Currency),
		CouponCode:        o.CouponCode,
		ShippingMethod:    o.ShippingMethod,
		PaymentMethod:     string(o.PaymentMethod),
		ShippingAddress: Address{
			Name:       o.ShippingAddress.Name,
			Street:     o.ShippingAddress.Street,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.Zip,
			Country:    o.ShippingAddress.Country,
			Phone:      o.ShippingAddress.Phone,
		},
	}
	if o.Discount > 0 {
		data.Discount = formatMoney(o.Discount, o.Currency)
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, OrderItem{
			Name:     item.Name,
			SKU:      item.SKU,
			Variant:  item.Variant,
			Quantity: item.Quantity,
			Price:    formatMoney(item.Price, o.Currency),
			Total:    formatMoney(item.Total, o.Currency),
		})
	}

	htmlContent, err := s.renderTemplate(string(EmailTypeOrderConfirmation), data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	return s.sender.Send(ctx, &Email{
		To:          []string{o.CustomerEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": o.OrderNumber,
			"order_total":  o.Total,
			"currency":     o.Currency,
		},
		CreatedAt: s.now(),
	})
}

// SendOrderStatusUpdate tells the customer the order moved to status
func (s *EmailService) SendOrderStatusUpdate(ctx context.Context, o *order.Order, status order.OrderStatus, tracking *order.Tracking) error {
	if o.CustomerEmail == "" {
		return fmt.Errorf("order %s has no customer email", o.OrderNumber)
	}

	data := OrderStatusUpdateData{
		EmailTemplateData: s.base(o),
		OrderNumber:       o.OrderNumber,
		Status:            string(status),
		StatusMessage:     statusMessage(status),
		OrderURL:          s.orderURL(o),
	}
	if tracking != nil {
		data.CourierName = tracking.CourierName
		data.TrackingNumber = tracking.TrackingNumber
		data.TrackingURL = tracking.TrackingURL
		if tracking.EstimatedDelivery != nil {
			data.EstimatedDelivery = tracking.EstimatedDelivery.Format("January 2, 2006")
		}
	}

	htmlContent, err := s.renderTemplate(string(EmailTypeOrderStatusUpdate), data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	return s.sender.Send(ctx, &Email{
		To:          []string{o.CustomerEmail},
		Subject:     fmt.Sprintf("Order Update - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
		Data: map[string]interface{}{
			"order_number": o.OrderNumber,
			"status":       status,
		},
		CreatedAt: s.now(),
	})
}

func (s *EmailService) base(o *order.Order) EmailTemplateData {
	name := o.ShippingAddress.Name
	if name == "" {
		name = "there"
	}
	return GetBaseTemplateData(s.siteName, strings.TrimRight(s.config.BaseURL, "/"), name, o.CustomerEmail, s.now())
}

func (s *EmailService) orderURL(o *order.Order) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/orders/" + o.OrderNumber
}

func statusMessage(status order.OrderStatus) string {
	switch status {
	case order.OrderStatusConfirmed:
		return "Your payment was received and your order is confirmed."
	case order.OrderStatusProcessing:
		return "We are preparing your order."
	case order.OrderStatusShipped:
		return "Your order is on its way."
	case order.OrderStatusDelivered:
		return "Your order was delivered."
	case order.OrderStatusCancelled:
		return "Your order was cancelled."
	case order.OrderStatusReturned:
		return "Your return was received."
	default:
		return "Your order status changed."
	}
}

// formatMoney renders cents as a decimal amount with the currency code
func formatMoney(cents int64, currency string) string {
	return decimal.New(cents, -2).StringFixed(2) + " " + currency
}

// loadTemplates loads the order templates from disk, keeping the built-in
// layout for any that cannot be parsed.
func (s *EmailService) loadTemplates() {
	for name, fallback := range defaultTemplates {
		s.templates[name] = template.Must(template.New(name).Parse(fallback))

		if s.config.TemplateDir == "" {
			continue
		}
		templatePath := filepath.Join(s.config.TemplateDir, name+".html")
		tmpl, err := template.ParseFiles(templatePath)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"template": name,
				"error":    err.Error(),
			}).Warn("Could not load email template, using built-in layout")
			continue
		}
		s.templates[name] = tmpl
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

var defaultTemplates = map[string]string{
	string(EmailTypeOrderConfirmation): `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">Thank you for your order</h1>
    <p>Hello {{.UserName}},</p>
    <p>Order <strong>{{.OrderNumber}}</strong> placed on {{.OrderDate}} is confirmed.</p>
    <table style="width: 100%; border-collapse: collapse;">
      {{range .Items}}<tr><td>{{.Name}}{{if .Variant}} ({{.Variant}}){{end}} x {{.Quantity}}</td><td style="text-align: right;">{{.Total}}</td></tr>
      {{end}}<tr><td>Subtotal</td><td style="text-align: right;">{{.Subtotal}}</td></tr>
      {{if .Discount}}<tr><td>Discount{{if .CouponCode}} ({{.CouponCode}}){{end}}</td><td style="text-align: right;">-{{.Discount}}</td></tr>{{end}}
      <tr><td>Tax</td><td style="text-align: right;">{{.Tax}}</td></tr>
      <tr><td>Shipping ({{.ShippingMethod}})</td><td style="text-align: right;">{{.Shipping}}</td></tr>
      <tr><td><strong>Total</strong></td><td style="text-align: right;"><strong>{{.OrderTotal}}</strong></td></tr>
    </table>
    <p>Shipping to {{.ShippingAddress.Name}}, {{.ShippingAddress.Street}}, {{.ShippingAddress.City}} {{.ShippingAddress.PostalCode}}, {{.ShippingAddress.Country}}</p>
    <p><a href="{{.OrderURL}}">View your order</a></p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. Questions? <a href="{{.SupportURL}}">Contact support</a>.</p>
  </div>
</body>
</html>`,
	string(EmailTypeOrderStatusUpdate): `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">Order {{.OrderNumber}}: {{.Status}}</h1>
    <p>Hello {{.UserName}},</p>
    <p>{{.StatusMessage}}</p>
    {{if .TrackingNumber}}<p>Tracking number: <strong>{{.TrackingNumber}}</strong>{{if .CourierName}} ({{.CourierName}}){{end}}</p>
    {{if .TrackingURL}}<p><a href="{{.TrackingURL}}">Track your package</a></p>{{end}}
    {{if .EstimatedDelivery}}<p>Estimated delivery: {{.EstimatedDelivery}}</p>{{end}}{{end}}
    <p><a href="{{.OrderURL}}">View your order</a></p>
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. Questions? <a href="{{.SupportURL}}">Contact support</a>.</p>
  </div>
</body>
</html>`,
}
