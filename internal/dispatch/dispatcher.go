package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/faq"
	"github.com/ombra/registrar/internal/recommend"
)

// Dispatcher routes chat traffic to the engine and the FAQ corpus.
type Dispatcher struct {
	registry *Registry
	service  *recommend.Service
	faqs     *faq.Retriever
	logger   *zap.Logger
}

// New builds a dispatcher and registers the built-in intents.
func New(service *recommend.Service, faqs *faq.Retriever, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: NewRegistry(),
		service:  service,
		faqs:     faqs,
		logger:   logger,
	}
	d.registerBuiltins()
	return d
}

// Registry exposes the intent registry, for the REST chat endpoint.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Handle processes one inbound chat message and returns the reply text.
func (d *Dispatcher) Handle(ctx context.Context, text string, hc *HandlerContext) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Ask me about your schedule, eligibility, or registration. Type /help for commands."
	}

	if strings.HasPrefix(text, "/") {
		result, err := d.registry.Dispatch(ctx, text, hc)
		if err != nil {
			d.logger.Error("intent dispatch error", zap.Error(err))
			return "Something went wrong: " + err.Error()
		}
		return result.Content
	}

	switch classify(text) {
	case intentRecommend:
		return d.recommendReply(ctx, "", hc)
	case intentEligible:
		return d.eligibleReply(ctx, hc)
	case intentGreeting:
		return fmt.Sprintf("Hi %s! I can recommend a schedule, list the courses you're eligible for, or answer registration questions.", displayName(hc))
	default:
		return d.faqReply(ctx, text)
	}
}

type intentKind int

const (
	intentFAQ intentKind = iota
	intentRecommend
	intentEligible
	intentGreeting
)

// classify picks an intent for free-form text by keyword.
func classify(text string) intentKind {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "recommend", "schedule", "what should i take", "plan my"):
		return intentRecommend
	case containsAny(t, "eligible", "can i take", "am i able to take", "what courses can i"):
		return intentEligible
	case containsAny(t, "hello", "hi there", "hey", "good morning", "good afternoon"):
		return intentGreeting
	default:
		return intentFAQ
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func displayName(hc *HandlerContext) string {
	if hc.UserName != "" {
		return hc.UserName
	}
	return "there"
}

func (d *Dispatcher) registerBuiltins() {
	d.registry.Register(&Intent{
		Name:        "recommend",
		Description: "Recommend a course schedule for the coming term",
		Usage:       "/recommend [minCredits maxCredits]",
		Handler: func(ctx context.Context, args string, hc *HandlerContext) (*Result, error) {
			return &Result{Content: d.recommendReply(ctx, args, hc)}, nil
		},
	})
	d.registry.Register(&Intent{
		Name:        "eligible",
		Description: "List the courses you are currently eligible to take",
		Usage:       "/eligible",
		Handler: func(ctx context.Context, args string, hc *HandlerContext) (*Result, error) {
			return &Result{Content: d.eligibleReply(ctx, hc)}, nil
		},
	})
	d.registry.Register(&Intent{
		Name:        "faq",
		Description: "Answer a registration question",
		Usage:       "/faq <question>",
		Handler: func(ctx context.Context, args string, hc *HandlerContext) (*Result, error) {
			if args == "" {
				return &Result{Content: "Usage: /faq <question>"}, nil
			}
			return &Result{Content: d.faqReply(ctx, args)}, nil
		},
	})
	d.registry.Register(&Intent{
		Name:        "help",
		Description: "Show available commands",
		Usage:       "/help",
		Handler: func(ctx context.Context, args string, hc *HandlerContext) (*Result, error) {
			var buf strings.Builder
			buf.WriteString("Available commands:\n")
			for _, in := range d.registry.List() {
				fmt.Fprintf(&buf, "  %s — %s\n", in.Usage, in.Description)
			}
			return &Result{Content: buf.String()}, nil
		},
	})
}

// recommendReply runs a recommendation for the requesting user. args may
// carry "minCredits maxCredits" overrides.
func (d *Dispatcher) recommendReply(ctx context.Context, args string, hc *HandlerContext) string {
	if hc.UserID == "" {
		return "I need to know who you are first. Please sign in or set your student id."
	}
	req := &recommend.Request{StudentID: hc.UserID}
	if args != "" {
		fields := strings.Fields(args)
		if len(fields) >= 1 {
			if v, err := strconv.Atoi(fields[0]); err == nil {
				req.MinCredits = v
			}
		}
		if len(fields) >= 2 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				req.MaxCredits = v
			}
		}
	}

	resp, err := d.service.Recommend(ctx, req)
	if err != nil {
		return renderError(err)
	}
	return renderSchedule(resp)
}

func (d *Dispatcher) eligibleReply(ctx context.Context, hc *HandlerContext) string {
	if hc.UserID == "" {
		return "I need to know who you are first. Please sign in or set your student id."
	}
	courses, err := d.service.Eligible(ctx, hc.UserID)
	if err != nil {
		return renderError(err)
	}
	if len(courses) == 0 {
		return "You are not currently eligible for any offered courses. Check with your advisor."
	}
	return "You are eligible for: " + strings.Join(courses, ", ")
}

func (d *Dispatcher) faqReply(ctx context.Context, question string) string {
	answer, err := d.faqs.Answer(ctx, question)
	if err != nil {
		if errors.Is(err, faq.ErrNoAnswer) {
			return err.Error()
		}
		d.logger.Error("faq lookup failed", zap.Error(err))
		return "I couldn't look that up right now. Please try again later."
	}
	return answer
}

// renderSchedule formats a recommendation for chat display.
func renderSchedule(resp *recommend.Response) string {
	var buf strings.Builder
	buf.WriteString("Here's your recommended schedule:\n")
	for _, c := range resp.Courses {
		slots := make([]string, len(c.TimeSlots))
		for i, ts := range c.TimeSlots {
			slots[i] = ts.String()
		}
		fmt.Fprintf(&buf, "  %s %s — %s (%d cr) %s\n",
			c.CourseID, c.SectionID, c.Title, c.Credits, strings.Join(slots, ", "))
	}
	fmt.Fprintf(&buf, "Total: %d credits.", resp.TotalCredits)
	for _, note := range resp.Notes {
		buf.WriteString("\nNote: " + note)
	}
	return buf.String()
}

// renderError maps engine errors to advisor-toned chat replies.
func renderError(err error) string {
	switch recommend.ErrorKind(err) {
	case recommend.KindNoFeasibleSchedule:
		return "I couldn't find a feasible schedule: " + err.Error()
	case recommend.KindBadRequest:
		return "I couldn't process that request: " + err.Error()
	default:
		return "Something went wrong on my end. Please try again later."
	}
}
