package utils

import (
	"bytes"
	"html/template"
	"io"
	"log"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// BookingConfirmationData feeds the confirmation templates sent to the
// beneficiary and to the venue after a booking committed.
type BookingConfirmationData struct {
	OfferName   string
	VenueName   string
	Token       string
	Quantity    int64
	TotalAmount string
	EventDate   string // empty for non-event offers
}

// BookingCancellationData feeds the cancellation templates.
type BookingCancellationData struct {
	OfferName string
	VenueName string
	Token     string
	Reason    string
}

// SendBookingConfirmationEmail notifies the beneficiary, attaching the
// redemption QR code. Runs async: the booking is already committed, a send
// failure is only logged.
func SendBookingConfirmationEmail(to string, data BookingConfirmationData, qrPayload string) {
	go func() {
		body, err := renderTemplate("templates/booking_confirmation.html", data)
		if err != nil {
			log.Printf("email: render confirmation template: %v", err)
			return
		}

		m := newMessage(to, "Votre réservation "+data.Token+" est confirmée", body)

		qrBytes, err := GenerateQRCode(qrPayload, 256)
		if err != nil {
			log.Printf("email: generate QR for booking %s: %v", data.Token, err)
		} else {
			filename := "Reservation_" + data.Token + ".png"
			m.Attach(filename, gomail.Rename(filename), gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(qrBytes))
				return err
			}))
		}

		send(m)
	}()
}

// SendNewBookingToProEmail notifies the venue. The first booking a venue
// ever receives gets a distinct template.
func SendNewBookingToProEmail(to string, data BookingConfirmationData, firstVenueBooking bool) {
	go func() {
		tmplPath := "templates/new_booking_to_pro.html"
		subject := "Nouvelle réservation " + data.Token
		if firstVenueBooking {
			tmplPath = "templates/first_venue_booking_to_pro.html"
			subject = "Votre première réservation " + data.Token
		}
		body, err := renderTemplate(tmplPath, data)
		if err != nil {
			log.Printf("email: render pro template: %v", err)
			return
		}
		send(newMessage(to, subject, body))
	}()
}

// SendBookingCancellationEmails notifies the beneficiary and the venue that
// a booking was cancelled.
func SendBookingCancellationEmails(beneficiaryEmail, proEmail string, data BookingCancellationData) {
	go func() {
		body, err := renderTemplate("templates/booking_cancellation.html", data)
		if err != nil {
			log.Printf("email: render cancellation template: %v", err)
			return
		}
		if beneficiaryEmail != "" {
			send(newMessage(beneficiaryEmail, "Votre réservation "+data.Token+" a été annulée", body))
		}
		if proEmail != "" {
			send(newMessage(proEmail, "Réservation "+data.Token+" annulée", body))
		}
	}()
}

func renderTemplate(path string, data any) (string, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", err
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

func newMessage(to, subject, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", os.Getenv("SMTP_FROM"))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return m
}

func send(m *gomail.Message) {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(os.Getenv("SMTP_HOST"), port, os.Getenv("SMTP_USERNAME"), os.Getenv("SMTP_PASSWORD"))
	if err := d.DialAndSend(m); err != nil {
		log.Printf("email: send failed: %v", err)
	}
}
