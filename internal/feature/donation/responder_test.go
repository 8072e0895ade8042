package donation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"coffee_bot/internal/feature/promo"
)

var testWallets = Wallets{TRC20: "TXYZtrc20", BEP20: "0xABCbep20"}

func TestMessageIncludesBothWallets(t *testing.T) {
	msg := Message(testWallets)

	for _, want := range []string{
		"☕ <b>Support WallSwipe</b>",
		"🔹 <b>USDT [TRC20]</b> (click to copy)\n<code>TXYZtrc20</code>",
		"🔹 <b>USDT [BEP20]</b> (click to copy)\n<code>0xABCbep20</code>",
		"⚠️ Please send only USDT on the selected network.",
		"Thank you for supporting WallSwipe ❤️",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestSendDonation(t *testing.T) {
	errSend := errors.New("send failed")

	tests := []struct {
		name      string
		images    imageSource
		photoErr  error
		textErr   error
		wantPhoto int
		wantText  int
		wantErr   bool
	}{
		{
			name:      "with image sends one photo",
			images:    &fakeImages{image: promo.Image{FileID: "coffee"}, ok: true},
			wantPhoto: 1,
		},
		{
			name:     "without image sends text",
			images:   &fakeImages{},
			wantText: 1,
		},
		{
			name:     "nil image source sends text",
			wantText: 1,
		},
		{
			name:     "image lookup failure falls back to text",
			images:   &fakeImages{err: errors.New("mongo down")},
			wantText: 1,
		},
		{
			name:      "photo failure falls back to text",
			images:    &fakeImages{image: promo.Image{FileID: "coffee"}, ok: true},
			photoErr:  errSend,
			wantPhoto: 1,
			wantText:  1,
		},
		{
			name:     "text failure is reported",
			images:   &fakeImages{},
			textErr:  errSend,
			wantText: 1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hookLogger, _ := logtest.NewNullLogger()
			s := &fakeSender{photoErr: tt.photoErr, textErr: tt.textErr}
			r := NewResponder(s, tt.images, testWallets, logrus.NewEntry(hookLogger))

			err := r.SendDonation(context.Background(), 111)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%t, got %v", tt.wantErr, err)
			}
			if len(s.photos) != tt.wantPhoto || len(s.texts) != tt.wantText {
				t.Fatalf("expected %d photo(s) and %d text(s), got %d and %d", tt.wantPhoto, tt.wantText, len(s.photos), len(s.texts))
			}

			want := Message(testWallets)
			for _, p := range s.photos {
				if p.caption != want || p.chatID != 111 || p.image.FileID != "coffee" {
					t.Fatalf("unexpected photo send %+v", p)
				}
			}
			for _, text := range s.texts {
				if text != want {
					t.Fatalf("expected donation text, got %q", text)
				}
			}
		})
	}
}

func TestSendDonationValidates(t *testing.T) {
	var r *Responder
	if err := r.SendDonation(context.Background(), 1); err == nil {
		t.Fatalf("expected error for nil responder")
	}

	r = NewResponder(&fakeSender{}, nil, testWallets, nil)
	if err := r.SendDonation(nil, 1); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

type photoSend struct {
	chatID  int64
	image   promo.Image
	caption string
}

type fakeSender struct {
	texts    []string
	photos   []photoSend
	textErr  error
	photoErr error
}

func (f *fakeSender) SendText(_ context.Context, _ int64, text string) error {
	f.texts = append(f.texts, text)
	return f.textErr
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, image promo.Image, caption string) error {
	f.photos = append(f.photos, photoSend{chatID: chatID, image: image, caption: caption})
	return f.photoErr
}

type fakeImages struct {
	image promo.Image
	ok    bool
	err   error
}

func (f *fakeImages) Latest(context.Context) (promo.Image, bool, error) {
	return f.image, f.ok, f.err
}
