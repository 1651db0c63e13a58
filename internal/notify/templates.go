package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"storefront/internal/models"
)

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Thank you for your order, {{.Customer.Name}}!</h1>
  <p>Order number: <strong>{{.Order.OrderNumber}}</strong></p>
  <table style="width: 100%; border-collapse: collapse;">
    <thead>
      <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>
    </thead>
    <tbody>
    {{range .Order.Items}}
      <tr>
        <td>{{.Name}}{{with variant .Variant}} ({{.}}){{end}}</td>
        <td align="right">{{.Quantity}}</td>
        <td align="right">{{money .Price}}</td>
      </tr>
    {{end}}
    </tbody>
  </table>
  <p>Subtotal: {{money .Order.Subtotal}}<br>
     Tax: {{money .Order.Tax}}<br>
     Shipping: {{money .Order.Shipping}}<br>
     <strong>Total: {{money .Order.Total}}</strong></p>
  <h3>Shipping to</h3>
  <p>{{.Order.ShippingAddress.Street}}<br>
     {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.ZipCode}}<br>
     {{.Order.ShippingAddress.Country}}</p>
</body>
</html>`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h1>Order update</h1>
  <p>Hi {{.Customer.Name}},</p>
  <p>{{headline .Order.Status}}</p>
  <p>Order number: <strong>{{.Order.OrderNumber}}</strong></p>
  {{if .Order.TrackingNumber}}<p>Tracking number: <strong>{{.Order.TrackingNumber}}</strong></p>{{end}}
</body>
</html>`))

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"variant": func(v map[string]string) string {
		parts := make([]string, 0, len(v))
		for k, val := range v {
			parts = append(parts, k+": "+val)
		}
		return strings.Join(parts, ", ")
	},
	"headline": statusHeadline,
}

type emailData struct {
	Order    models.Order
	Customer models.User
}

func statusHeadline(status string) string {
	switch status {
	case models.OrderStatusShipped:
		return "Good news! Your order is on its way."
	case models.OrderStatusDelivered:
		return "Your order has been delivered."
	case models.OrderStatusCancelled:
		return "Your order has been cancelled."
	default:
		return "Your order status is now " + status + "."
	}
}

func statusSubject(order models.Order) string {
	switch order.Status {
	case models.OrderStatusShipped:
		return "Your order " + order.OrderNumber + " has shipped"
	case models.OrderStatusDelivered:
		return "Your order " + order.OrderNumber + " was delivered"
	case models.OrderStatusCancelled:
		return "Your order " + order.OrderNumber + " was cancelled"
	default:
		return "Update on order " + order.OrderNumber
	}
}

func render(t *template.Template, order models.Order, customer models.User) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, emailData{Order: order, Customer: customer}); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
