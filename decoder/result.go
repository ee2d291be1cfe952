package decoder

// Hypothesis is one ranked beam-search output.
type Hypothesis struct {
	Score     float64 // AMScore + LMWeight*LMScore + WordScore*WordCount + SilScore*SilCount
	AMScore   float64 // summed emission log-probabilities
	LMScore   float64 // language model log-probability, including end of sentence
	WordCount int
	SilCount  int
	Tokens    []int // one token index per frame, blanks and silences included
	Words     []int // committed word ids in order
}

// Result holds the recognition output.
type Result struct {
	Text     string  // recognized text
	Words    []Word  // word-level details
	LogScore float64 // total hypothesis score
}

// Word holds per-word timing information.
type Word struct {
	Text       string
	Frames     []int   // frames that emitted this word, closing silence included
	StartFrame int
	EndFrame   int
	Start      float64 // seconds
	End        float64 // seconds, extended by one frame
}
