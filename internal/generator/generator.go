// Package generator builds assessment text for a topic.
package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DefaultLength is the target content length in characters.
const DefaultLength = 5000

// ErrUnknownTopic is returned for topics outside Topics.
var ErrUnknownTopic = errors.New("unknown topic")

// Topics lists the selectable topic keys in display order.
var Topics = []string{
	"technology",
	"business",
	"environment",
	"health",
	"education",
	"travel",
	"science",
	"sports",
	"food",
	"history",
}

var topicSubjects = map[string]string{
	"technology":  "artificial intelligence, machine learning, future technology trends, digital transformation, cybersecurity",
	"business":    "entrepreneurship, business strategy, market analysis, leadership, innovation management",
	"environment": "climate change, renewable energy, sustainable development, environmental protection, green technology",
	"health":      "medical technology, healthcare innovation, disease prevention, mental health, nutrition science",
	"education":   "educational reform, learning methods, online education, skill development, knowledge management",
	"travel":      "world cultures, travel experiences, international relations, cultural exchange, global tourism",
	"science":     "scientific research, laboratory experiments, scientific discoveries, research methodology, scientific innovation",
	"sports":      "sports science, fitness training, athletic performance, sports psychology, exercise physiology",
	"food":        "culinary arts, cooking techniques, nutrition science, food culture, gastronomy",
	"history":     "historical events, ancient civilizations, cultural heritage, historical analysis, world history",
}

// The first sentence carries the topic subject; %s is replaced with it.
var sentenceTemplates = []string{
	"The field of %s has undergone remarkable transformations in recent years.",
	"Researchers and practitioners continue to explore innovative approaches and methodologies.",
	"These developments have significant implications for society, economy, and individual lives.",
	"Understanding the complexities and nuances requires careful analysis and critical thinking.",
	"Modern technology enables us to process vast amounts of information efficiently.",
	"Collaboration between different disciplines often leads to breakthrough discoveries.",
	"The integration of theoretical knowledge with practical applications remains crucial.",
	"Educational institutions play a vital role in preparing future professionals.",
	"Continuous learning and adaptation are essential in today's rapidly changing world.",
	"Ethical considerations must guide our decisions and implementations.",
	"Global perspectives help us understand diverse approaches and solutions.",
	"Innovation drives progress, but it must be balanced with sustainability.",
	"Communication skills are fundamental for sharing knowledge and ideas effectively.",
	"Data-driven decision making has become increasingly important across all sectors.",
	"Quality assurance and standards ensure reliability and consistency in outcomes.",
	"Professional development requires dedication, practice, and ongoing education.",
	"Interdisciplinary collaboration fosters creativity and comprehensive solutions.",
	"Risk assessment and management are critical components of any successful project.",
	"User experience and human-centered design principles guide modern development.",
	"Environmental impact and social responsibility influence contemporary practices.",
}

// Generator produces topic text.
type Generator struct {
	rnd     *rand.Rand
	shuffle bool
}

// New returns a Generator that always starts the text with the topic
// sentence.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewShuffled returns a Generator that starts each text at a random source
// sentence, seeded with seed.
func NewShuffled(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), shuffle: true}
}

// KnownTopic reports whether topic is selectable.
func KnownTopic(topic string) bool {
	_, ok := topicSubjects[topic]
	return ok
}

// Subject returns the subject line shown for a topic.
func Subject(topic string) string {
	return topicSubjects[topic]
}

// Generate repeats the topic's source sentences until length characters are
// reached and truncates to exactly length.
func (g *Generator) Generate(topic string, length int) (string, error) {
	subject, ok := topicSubjects[topic]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if length <= 0 {
		length = DefaultLength
	}
	sentences := make([]string, len(sentenceTemplates))
	for i, tmpl := range sentenceTemplates {
		if i == 0 {
			sentences[i] = fmt.Sprintf(tmpl, subject)
			continue
		}
		sentences[i] = tmpl
	}
	if g.shuffle {
		start := g.rnd.Intn(len(sentences))
		sentences = append(sentences[start:], sentences[:start]...)
	}
	block := strings.Join(sentences, " ")

	var b strings.Builder
	b.Grow(length + len(block))
	b.WriteString(block)
	for b.Len() < length {
		b.WriteByte(' ')
		b.WriteString(block)
	}
	return b.String()[:length], nil
}
